package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindx-engine/internal/domain"
)

func TestNormalizeSymptoms(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []string
	}{
		{"delimited string", "fever, chills", []string{"fever", "chills"}},
		{"sequence", []string{"fever", "chills"}, []string{"fever", "chills"}},
		{"decoded json sequence", []any{"fever", "chills"}, []string{"fever", "chills"}},
		{"json encoded string", `["fever","chills"]`, []string{"fever", "chills"}},
		{"json string keeps inner commas", `["pain, left arm"]`, []string{"pain, left arm"}},
		{"mixed separators", "cough;\nheadache ,, ", []string{"cough", "headache"}},
		{"broken json falls back to splitting", `[fever, chills`, []string{"[fever", "chills"}},
		{"non string items", []any{"fever", 3, nil, map[string]any{"a": 1}}, []string{"fever", "3"}},
		{"nil", nil, []string{}},
		{"blank", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSymptoms(tt.input))
		})
	}
}

func TestBuildRequest(t *testing.T) {
	evaluation := &domain.Evaluation{
		Symptoms: []string{"fever", "chills"},
		Vitals:   map[string]any{"temp": "39.1", "hr": 122, "blood_pressure": "88/60", "spo2": 90},
		Labs:     map[string]any{"glucose": 140, "trestbps": "135"},
	}

	req := BuildRequest(evaluation)

	assert.Equal(t, []string{"fever", "chills"}, req.Symptoms)
	require.NotNil(t, req.Vitals[0])
	assert.Equal(t, 39.1, *req.Vitals[0])
	assert.Equal(t, 122.0, *req.Vitals[1])
	assert.Equal(t, 88.0, *req.Vitals[2])
	assert.Equal(t, 90.0, *req.Vitals[3])
	assert.Equal(t, 140.0, *req.Labs[0])
	assert.Nil(t, req.Labs[1])
	assert.Equal(t, 135.0, *req.Labs[2])
}

func TestBuildRequest_EmptyEvaluation(t *testing.T) {
	req := BuildRequest(&domain.Evaluation{})

	assert.NotNil(t, req.Symptoms)
	assert.Empty(t, req.Symptoms)
	for _, v := range req.Vitals {
		assert.Nil(t, v)
	}
	for _, v := range req.Labs {
		assert.Nil(t, v)
	}
}
