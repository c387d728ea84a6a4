// Package scoring computes the early-warning score and the counterfactual
// vitals and treatment simulations. Every function is pure.
package scoring

import "math"

// LabelScale maps a score to a three-band label. All score-to-label
// decisions go through Label so thresholds cannot drift between callers.
type LabelScale struct {
	High     float64
	Moderate float64
	Labels   [3]string // high, moderate, low
}

// Label returns the band label for score.
func (s LabelScale) Label(score float64) string {
	switch {
	case score >= s.High:
		return s.Labels[0]
	case score >= s.Moderate:
		return s.Labels[1]
	default:
		return s.Labels[2]
	}
}

// Label values.
const (
	LabelHigh     = "High"
	LabelModerate = "Moderate"
	LabelLow      = "Low"
	LabelGood     = "Good"
	LabelPoor     = "Poor"
)

var (
	// EarlyWarningScale applies to 0–100 early-warning scores.
	EarlyWarningScale = LabelScale{High: 70, Moderate: 40, Labels: [3]string{LabelHigh, LabelModerate, LabelLow}}
	// WhatIfScale applies to 0–1 simulated vitals risk.
	WhatIfScale = LabelScale{High: 0.75, Moderate: 0.4, Labels: [3]string{LabelHigh, LabelModerate, LabelLow}}
	// TreatmentScale applies to 0–1 treatment response scores.
	TreatmentScale = LabelScale{High: 0.75, Moderate: 0.45, Labels: [3]string{LabelGood, LabelModerate, LabelPoor}}
)

// RiskLabel labels an early-warning score.
func RiskLabel(score int) string {
	return EarlyWarningScale.Label(float64(score))
}

// roundForDisplay rounds to two decimal places.
func roundForDisplay(score float64) float64 {
	return math.Round(score*100) / 100
}
