package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindx-engine/internal/domain"
)

var testPatient = &domain.Patient{ID: 7, DoctorID: 1, Name: "Asha Rao", Age: 54}

func TestEarlyWarning_NoEvaluation(t *testing.T) {
	result := EarlyWarning(testPatient, nil)

	assert.Equal(t, int64(7), result.PatientID)
	assert.Equal(t, "Asha Rao", result.PatientName)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, LabelLow, result.RiskLabel)
	assert.NotNil(t, result.Triggers)
	assert.Empty(t, result.Triggers)
	assert.Nil(t, result.LastEvaluationAt)
}

func TestEarlyWarning_CombinedRules(t *testing.T) {
	createdAt := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	evaluation := &domain.Evaluation{
		Vitals:    map[string]any{"spo2": 85, "hr": 130},
		Diagnosis: &domain.Diagnosis{PrimaryDiagnosis: "Sepsis Risk", HighRisk: true},
		CreatedAt: createdAt,
	}

	result := EarlyWarning(testPatient, evaluation)

	assert.Equal(t, 85, result.Score)
	assert.Equal(t, LabelHigh, result.RiskLabel)
	assert.Equal(t, []string{TriggerLowOxygen, TriggerTachycardia, TriggerAIHighRisk}, result.Triggers)
	require.NotNil(t, result.LastEvaluationAt)
	assert.Equal(t, createdAt, *result.LastEvaluationAt)
}

func TestScoreEvaluation_Rules(t *testing.T) {
	tests := []struct {
		name     string
		vitals   map[string]any
		diag     *domain.Diagnosis
		score    int
		triggers []string
	}{
		{"empty vitals", map[string]any{}, nil, 0, []string{}},
		{"low spo2", map[string]any{"spo2": "91"}, nil, 30, []string{TriggerLowOxygen}},
		{"spo2 at threshold", map[string]any{"spo2": 92}, nil, 0, []string{}},
		{"heart_rate spelling", map[string]any{"heart_rate": 121}, nil, 20, []string{TriggerTachycardia}},
		{"hr takes precedence", map[string]any{"hr": 100, "heart_rate": 150}, nil, 0, []string{}},
		{"temperature spelling", map[string]any{"temperature": 39.4}, nil, 15, []string{TriggerHighFever}},
		{"temp at threshold", map[string]any{"temp": 39}, nil, 0, []string{}},
		{"high risk diagnosis only", nil, &domain.Diagnosis{HighRisk: true}, 35, []string{TriggerAIHighRisk}},
		{"low risk diagnosis", nil, &domain.Diagnosis{HighRisk: false}, 0, []string{}},
		{"unparseable readings", map[string]any{"spo2": "low", "hr": true}, nil, 0, []string{}},
		{
			"all rules",
			map[string]any{"spo2": 80, "hr": 140, "temp": 40.1},
			&domain.Diagnosis{HighRisk: true},
			100,
			[]string{TriggerLowOxygen, TriggerTachycardia, TriggerHighFever, TriggerAIHighRisk},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, triggers := ScoreEvaluation(&domain.Evaluation{Vitals: tt.vitals, Diagnosis: tt.diag})
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.triggers, triggers)
		})
	}
}

func TestScoreEvaluation_MonotonicAndBounded(t *testing.T) {
	steps := []*domain.Evaluation{
		{Vitals: map[string]any{}},
		{Vitals: map[string]any{"temp": 40}},
		{Vitals: map[string]any{"temp": 40, "hr": 130}},
		{Vitals: map[string]any{"temp": 40, "hr": 130, "spo2": 88}},
		{Vitals: map[string]any{"temp": 40, "hr": 130, "spo2": 88}, Diagnosis: &domain.Diagnosis{HighRisk: true}},
	}

	previous := -1
	for i, evaluation := range steps {
		score, _ := ScoreEvaluation(evaluation)
		assert.GreaterOrEqual(t, score, previous, "step %d", i)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		previous = score
	}
}

func TestRiskLabel(t *testing.T) {
	tests := []struct {
		score int
		label string
	}{
		{0, LabelLow},
		{39, LabelLow},
		{40, LabelModerate},
		{69, LabelModerate},
		{70, LabelHigh},
		{100, LabelHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.label, RiskLabel(tt.score), "score %d", tt.score)
	}
}
