// Package diagnosis turns a new evaluation into a predictor request and
// guarantees a well-formed diagnosis for it, substituting a fixed fallback
// whenever the predictor fails.
package diagnosis

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"

	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/vitals"
)

// NormalizeSymptoms coerces symptoms to a sequence of strings. A string is
// decoded as a JSON array when it looks like one and is otherwise split on
// commas, semicolons and newlines. Blank entries are dropped.
func NormalizeSymptoms(raw any) []string {
	symptoms := []string{}

	switch v := raw.(type) {
	case nil:
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var decoded []any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				return NormalizeSymptoms(decoded)
			}
		}
		for _, part := range strings.FieldsFunc(trimmed, isSymptomSeparator) {
			symptoms = appendSymptom(symptoms, part)
		}
	case []string:
		for _, item := range v {
			symptoms = appendSymptom(symptoms, item)
		}
	case []any:
		for _, item := range v {
			if s, err := cast.ToStringE(item); err == nil {
				symptoms = appendSymptom(symptoms, s)
			}
		}
	default:
		if s, err := cast.ToStringE(v); err == nil {
			symptoms = appendSymptom(symptoms, s)
		}
	}

	return symptoms
}

func isSymptomSeparator(r rune) bool {
	return r == ',' || r == ';' || r == '\n' || r == '\r'
}

func appendSymptom(symptoms []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return symptoms
	}
	return append(symptoms, s)
}

// BuildRequest maps an evaluation onto the predictor's request contract.
func BuildRequest(evaluation *domain.Evaluation) domain.PredictionRequest {
	v := vitals.Resolve(evaluation.Vitals)
	labs := vitals.ResolveLabs(evaluation.Labs)

	symptoms := make([]string, len(evaluation.Symptoms))
	copy(symptoms, evaluation.Symptoms)

	return domain.PredictionRequest{
		Symptoms: symptoms,
		Vitals:   [4]*float64{v.Temperature, v.HeartRate, v.SystolicBP, v.SpO2},
		Labs:     [3]*float64{labs.Glucose, labs.Cholesterol, labs.RestingBP},
	}
}
