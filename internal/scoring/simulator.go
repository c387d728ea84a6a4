package scoring

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/clindx-engine/internal/vitals"
)

// WhatIfVitals is a hypothetical vitals set. Nil fields are unknown and do
// not contribute. DiastolicBP is accepted but not scored.
type WhatIfVitals struct {
	HeartRate       *float64 `json:"heart_rate"`
	SystolicBP      *float64 `json:"systolic_bp"`
	DiastolicBP     *float64 `json:"diastolic_bp"`
	RespiratoryRate *float64 `json:"respiratory_rate"`
	SpO2            *float64 `json:"spo2"`
	Temperature     *float64 `json:"temperature"`
}

// WhatIfResult is the outcome of a vitals simulation. Score is rounded for
// display; RawScore keeps full precision.
type WhatIfResult struct {
	Score       float64 `json:"simulated_risk_score"`
	Label       string  `json:"simulated_risk_label"`
	Explanation string  `json:"explanation"`
	RawScore    float64 `json:"-"`
}

// WithinRangeExplanation is returned when no vitals rule fires.
const WithinRangeExplanation = "Vitals remain within acceptable clinical ranges."

type whatIfRule struct {
	weight float64
	reason string
	fires  func(v WhatIfVitals) bool
}

// Listed in explanation order; weights are order independent.
var whatIfRules = []whatIfRule{
	{0.20, "Elevated heart rate increases physiological stress.", func(v WhatIfVitals) bool { return above(v.HeartRate, 120) }},
	{0.25, "Low oxygen saturation indicates respiratory compromise.", func(v WhatIfVitals) bool { return below(v.SpO2, 92) }},
	{0.20, "Hypotension suggests circulatory instability.", func(v WhatIfVitals) bool { return below(v.SystolicBP, 90) }},
	{0.20, "High respiratory rate reflects increased work of breathing.", func(v WhatIfVitals) bool { return above(v.RespiratoryRate, 28) }},
	{0.15, "High fever increases metabolic demand.", func(v WhatIfVitals) bool { return above(v.Temperature, 39.0) }},
}

// SimulateVitals scores a hypothetical vitals set on a 0–1 scale.
func SimulateVitals(v WhatIfVitals) WhatIfResult {
	score := 0.0
	var reasons []string

	for _, rule := range whatIfRules {
		if rule.fires(v) {
			score += rule.weight
			reasons = append(reasons, rule.reason)
		}
	}
	score = math.Min(score, 1.0)

	explanation := WithinRangeExplanation
	if len(reasons) > 0 {
		explanation = strings.Join(reasons, " ")
	}

	return WhatIfResult{
		Score:       roundForDisplay(score),
		Label:       WhatIfScale.Label(score),
		Explanation: explanation,
		RawScore:    score,
	}
}

// WhatIfVitalsFromMap reads a loosely-typed request body.
func WhatIfVitalsFromMap(m map[string]any) WhatIfVitals {
	return WhatIfVitals{
		HeartRate:       vitals.Number(m, "heart_rate"),
		SystolicBP:      vitals.Number(m, "systolic_bp"),
		DiastolicBP:     vitals.Number(m, "diastolic_bp"),
		RespiratoryRate: vitals.Number(m, "respiratory_rate"),
		SpO2:            vitals.Number(m, "spo2"),
		Temperature:     vitals.Number(m, "temperature"),
	}
}

// Treatment identifiers that change the response score.
const (
	TreatmentAntibiotic    = "antibiotic"
	VentilationNonInvasive = "non_invasive"
	treatmentBaseline      = 0.2
	maxTreatmentHours      = 48
	maxTreatmentDose       = 10 // doses of 8 and above already saturate the score
)

// TreatmentPlan is a hypothetical treatment.
type TreatmentPlan struct {
	Type          string `json:"type"`
	Dose          int    `json:"dose"`
	DurationHours int    `json:"duration_hours"`
	Ventilation   string `json:"ventilation"`
}

// TreatmentResult is the outcome of a treatment simulation.
type TreatmentResult struct {
	Score       float64 `json:"response_score"`
	Label       string  `json:"response_label"`
	Explanation string  `json:"explanation"`
	RawScore    float64 `json:"-"`
}

var treatmentSummaries = map[string]string{
	LabelGood:     "Overall response is expected to be favorable.",
	LabelModerate: "Partial improvement is expected with current therapy.",
	LabelPoor:     "Limited response expected; reassessment advised.",
}

// SimulateTreatment scores a hypothetical treatment on a 0–1 scale.
// Negative dose and duration are treated as zero.
func SimulateTreatment(plan TreatmentPlan) TreatmentResult {
	dose := max(plan.Dose, 0)
	hours := max(plan.DurationHours, 0)

	score := treatmentBaseline
	if plan.Type == TreatmentAntibiotic {
		score += 0.25
	}
	score += float64(dose) * 0.1
	score += float64(min(hours, maxTreatmentHours)) / 24.0 * 0.15
	if plan.Ventilation == VentilationNonInvasive {
		score += 0.15
	}
	score = math.Min(score, 1.0)

	var reasons []string
	if plan.Type == TreatmentAntibiotic {
		reasons = append(reasons, "Antibiotic therapy improves infection control.")
	}
	if dose >= 3 {
		reasons = append(reasons, "Higher dose enhances therapeutic effect.")
	}
	if hours >= 24 {
		reasons = append(reasons, "Longer treatment duration supports sustained recovery.")
	}
	if plan.Ventilation == VentilationNonInvasive {
		reasons = append(reasons, "Ventilatory support reduces respiratory workload.")
	}

	label := TreatmentScale.Label(score)
	reasons = append(reasons, treatmentSummaries[label])

	return TreatmentResult{
		Score:       roundForDisplay(score),
		Label:       label,
		Explanation: strings.Join(reasons, " "),
		RawScore:    score,
	}
}

// TreatmentPlanFromMap reads a loosely-typed request body. Dose and
// duration are truncated to whole numbers.
func TreatmentPlanFromMap(m map[string]any) TreatmentPlan {
	return TreatmentPlan{
		Type:          text(m, "type"),
		Dose:          whole(m, "dose", maxTreatmentDose),
		DurationHours: whole(m, "duration_hours", maxTreatmentHours),
		Ventilation:   text(m, "ventilation"),
	}
}

func text(m map[string]any, key string) string {
	v, ok := vitals.Lookup(m, key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// whole truncates the value at key into [0, ceiling].
func whole(m map[string]any, key string, ceiling float64) int {
	f := vitals.Number(m, key)
	if f == nil {
		return 0
	}
	return int(math.Max(0, math.Min(*f, ceiling)))
}

func above(v *float64, limit float64) bool {
	return v != nil && *v > limit
}

func below(v *float64, limit float64) bool {
	return v != nil && *v < limit
}
