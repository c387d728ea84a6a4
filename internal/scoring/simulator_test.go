package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 {
	return &v
}

func TestSimulateVitals_WithinRange(t *testing.T) {
	result := SimulateVitals(WhatIfVitals{
		HeartRate:       f(90),
		SystolicBP:      f(120),
		DiastolicBP:     f(80),
		RespiratoryRate: f(18),
		SpO2:            f(98),
		Temperature:     f(37),
	})

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, LabelLow, result.Label)
	assert.Equal(t, WithinRangeExplanation, result.Explanation)
}

func TestSimulateVitals_Rules(t *testing.T) {
	tests := []struct {
		name   string
		vitals WhatIfVitals
		score  float64
		label  string
	}{
		{"tachycardia", WhatIfVitals{HeartRate: f(121)}, 0.2, LabelLow},
		{"tachypnea", WhatIfVitals{RespiratoryRate: f(30)}, 0.2, LabelLow},
		{"hypoxia", WhatIfVitals{SpO2: f(90)}, 0.25, LabelLow},
		{"hypotension", WhatIfVitals{SystolicBP: f(85)}, 0.2, LabelLow},
		{"fever", WhatIfVitals{Temperature: f(39.5)}, 0.15, LabelLow},
		{"hypoxia and hypotension", WhatIfVitals{SpO2: f(90), SystolicBP: f(85)}, 0.45, LabelModerate},
		{
			"everything",
			WhatIfVitals{HeartRate: f(150), RespiratoryRate: f(35), SpO2: f(80), SystolicBP: f(70), Temperature: f(41)},
			1.0,
			LabelHigh,
		},
		{"diastolic ignored", WhatIfVitals{DiastolicBP: f(20)}, 0.0, LabelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SimulateVitals(tt.vitals)
			assert.InDelta(t, tt.score, result.Score, 1e-9)
			assert.Equal(t, tt.label, result.Label)
		})
	}
}

func TestSimulateVitals_ExplanationOrder(t *testing.T) {
	result := SimulateVitals(WhatIfVitals{HeartRate: f(130), Temperature: f(40)})

	assert.Equal(t,
		"Elevated heart rate increases physiological stress. High fever increases metabolic demand.",
		result.Explanation)
}

func TestSimulateVitals_DisplayRounding(t *testing.T) {
	result := SimulateVitals(WhatIfVitals{HeartRate: f(130), SpO2: f(85), Temperature: f(40)})

	assert.Equal(t, 0.6, result.Score)
	assert.InDelta(t, 0.6, result.RawScore, 1e-9)
	assert.Equal(t, LabelModerate, result.Label)
}

func TestWhatIfVitalsFromMap(t *testing.T) {
	v := WhatIfVitalsFromMap(map[string]any{
		"heart_rate":       "125",
		"systolic_bp":      88,
		"respiratory_rate": nil,
		"spo2":             "",
	})

	assert.Equal(t, f(125), v.HeartRate)
	assert.Equal(t, f(88), v.SystolicBP)
	assert.Nil(t, v.RespiratoryRate)
	assert.Nil(t, v.SpO2)
}

func TestSimulateTreatment_AntibioticOnly(t *testing.T) {
	result := SimulateTreatment(TreatmentPlan{Type: "antibiotic", Dose: 0, DurationHours: 0, Ventilation: "none"})

	assert.Equal(t, 0.45, result.RawScore)
	assert.Equal(t, 0.45, result.Score)
	assert.Equal(t, LabelModerate, result.Label)
	assert.Equal(t,
		"Antibiotic therapy improves infection control. Partial improvement is expected with current therapy.",
		result.Explanation)
}

func TestSimulateTreatment_Scores(t *testing.T) {
	tests := []struct {
		name  string
		plan  TreatmentPlan
		score float64
		label string
	}{
		{"baseline", TreatmentPlan{}, 0.2, LabelPoor},
		{"dose only", TreatmentPlan{Dose: 2}, 0.4, LabelPoor},
		{"duration 24h", TreatmentPlan{DurationHours: 24}, 0.35, LabelPoor},
		{"duration capped at 48h", TreatmentPlan{DurationHours: 96}, 0.5, LabelModerate},
		{"non invasive ventilation", TreatmentPlan{Ventilation: "non_invasive"}, 0.35, LabelPoor},
		{"full course", TreatmentPlan{Type: "antibiotic", Dose: 3, DurationHours: 48, Ventilation: "non_invasive"}, 1.0, LabelGood},
		{"negative inputs clamp", TreatmentPlan{Dose: -5, DurationHours: -10}, 0.2, LabelPoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SimulateTreatment(tt.plan)
			assert.InDelta(t, tt.score, result.Score, 1e-9)
			assert.Equal(t, tt.label, result.Label)
			assert.LessOrEqual(t, result.RawScore, 1.0)
		})
	}
}

func TestSimulateTreatment_Explanation(t *testing.T) {
	result := SimulateTreatment(TreatmentPlan{Type: "antibiotic", Dose: 3, DurationHours: 24, Ventilation: "non_invasive"})

	assert.True(t, strings.HasPrefix(result.Explanation, "Antibiotic therapy improves infection control. Higher dose enhances therapeutic effect."))
	assert.Contains(t, result.Explanation, "Longer treatment duration supports sustained recovery.")
	assert.Contains(t, result.Explanation, "Ventilatory support reduces respiratory workload.")
	assert.True(t, strings.HasSuffix(result.Explanation, "Overall response is expected to be favorable."))
}

func TestTreatmentPlanFromMap(t *testing.T) {
	plan := TreatmentPlanFromMap(map[string]any{
		"type":           " antibiotic ",
		"dose":           "2.9",
		"duration_hours": 36,
		"ventilation":    "non_invasive",
	})

	assert.Equal(t, TreatmentPlan{Type: "antibiotic", Dose: 2, DurationHours: 36, Ventilation: "non_invasive"}, plan)
}

func TestTreatmentPlanFromMap_OutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		plan  TreatmentPlan
		score float64
		label string
	}{
		{
			name:  "huge dose",
			body:  map[string]any{"type": "antibiotic", "dose": 1e20},
			plan:  TreatmentPlan{Type: "antibiotic", Dose: maxTreatmentDose},
			score: 1.0,
			label: LabelGood,
		},
		{
			name:  "huge duration",
			body:  map[string]any{"duration_hours": "1e30"},
			plan:  TreatmentPlan{DurationHours: maxTreatmentHours},
			score: 0.5,
			label: LabelModerate,
		},
		{
			name:  "huge negative dose",
			body:  map[string]any{"type": "antibiotic", "dose": -1e20},
			plan:  TreatmentPlan{Type: "antibiotic"},
			score: 0.45,
			label: LabelModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := TreatmentPlanFromMap(tt.body)
			assert.Equal(t, tt.plan, plan)

			result := SimulateTreatment(plan)
			assert.InDelta(t, tt.score, result.Score, 1e-9)
			assert.Equal(t, tt.label, result.Label)
		})
	}
}

func TestTreatmentPlanFromMap_DoseIsMonotonic(t *testing.T) {
	previous := 0.0
	for _, dose := range []float64{0, 1, 5, 8, 1e6, 1e18, 1e20, 1e300} {
		result := SimulateTreatment(TreatmentPlanFromMap(map[string]any{"type": "antibiotic", "dose": dose}))
		assert.GreaterOrEqual(t, result.RawScore, previous, "dose %g", dose)
		assert.LessOrEqual(t, result.RawScore, 1.0)
		previous = result.RawScore
	}
}

func TestLabelScales(t *testing.T) {
	assert.Equal(t, LabelHigh, WhatIfScale.Label(0.75))
	assert.Equal(t, LabelModerate, WhatIfScale.Label(0.4))
	assert.Equal(t, LabelLow, WhatIfScale.Label(0.39))
	assert.Equal(t, LabelGood, TreatmentScale.Label(0.75))
	assert.Equal(t, LabelModerate, TreatmentScale.Label(0.45))
	assert.Equal(t, LabelPoor, TreatmentScale.Label(0.44))
}
