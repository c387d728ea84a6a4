package scoring

import (
	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/vitals"
)

// Early-warning trigger texts.
const (
	TriggerLowOxygen   = "Low oxygen saturation"
	TriggerTachycardia = "Tachycardia"
	TriggerHighFever   = "High fever"
	TriggerAIHighRisk  = "AI flagged high-risk diagnosis"
)

const (
	maxEarlyWarningScore = 100
	minEarlyWarningScore = 0
)

// earlyWarningRule contributes points when its condition holds. Rules are
// independent and their contributions sum.
type earlyWarningRule struct {
	points  int
	trigger string
	applies func(v map[string]any, d *domain.Diagnosis) bool
}

var earlyWarningRules = []earlyWarningRule{
	{
		points:  30,
		trigger: TriggerLowOxygen,
		applies: func(v map[string]any, _ *domain.Diagnosis) bool {
			spo2 := vitals.Number(v, "spo2")
			return spo2 != nil && *spo2 < 92
		},
	},
	{
		points:  20,
		trigger: TriggerTachycardia,
		applies: func(v map[string]any, _ *domain.Diagnosis) bool {
			hr := vitals.Number(v, "hr", "heart_rate")
			return hr != nil && *hr > 120
		},
	},
	{
		points:  15,
		trigger: TriggerHighFever,
		applies: func(v map[string]any, _ *domain.Diagnosis) bool {
			temp := vitals.Number(v, "temp", "temperature")
			return temp != nil && *temp > 39
		},
	},
	{
		points:  35,
		trigger: TriggerAIHighRisk,
		applies: func(_ map[string]any, d *domain.Diagnosis) bool {
			return d != nil && d.HighRisk
		},
	},
}

// EarlyWarning scores a patient from their most recent evaluation, which
// may be nil.
func EarlyWarning(patient *domain.Patient, latest *domain.Evaluation) domain.EarlyWarningResult {
	result := domain.EarlyWarningResult{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		RiskLabel:   RiskLabel(0),
		Triggers:    []string{},
	}
	if latest == nil {
		return result
	}

	score, triggers := ScoreEvaluation(latest)
	createdAt := latest.CreatedAt

	result.Score = score
	result.RiskLabel = RiskLabel(score)
	result.Triggers = triggers
	result.LastEvaluationAt = &createdAt
	return result
}

// ScoreEvaluation applies the early-warning rules to one evaluation and
// returns the clamped score with the triggers that fired, in rule order.
func ScoreEvaluation(evaluation *domain.Evaluation) (int, []string) {
	score := 0
	triggers := []string{}

	for _, rule := range earlyWarningRules {
		if rule.applies(evaluation.Vitals, evaluation.Diagnosis) {
			score += rule.points
			triggers = append(triggers, rule.trigger)
		}
	}

	return clamp(score, minEarlyWarningScore, maxEarlyWarningScore), triggers
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
