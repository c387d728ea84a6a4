package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindx-engine/internal/domain"
)

func at(hour int) time.Time {
	return time.Date(2026, 5, 1, hour, 0, 0, 0, time.UTC)
}

func history() []*domain.Evaluation {
	return []*domain.Evaluation{
		{ID: 1, Vitals: map[string]any{"hr": 88, "spo2": 97, "temp": 37.2, "blood_pressure": "118/76"}, CreatedAt: at(8)},
		{ID: 2, Vitals: map[string]any{"respiratory_rate": 20}, CreatedAt: at(9)},
		{ID: 3, InputData: map[string]any{"pulse": "102", "body_temp": "38.4"}, CreatedAt: at(10)},
		{ID: 4, RawFeatures: []any{1, 2, 3}, CreatedAt: at(11)},
		{ID: 5, RawFeatures: map[string]any{"oxygen_saturation": 91}, CreatedAt: at(12)},
		{ID: 6, CreatedAt: at(13)},
	}
}

func TestExtract(t *testing.T) {
	points := Extract(history())

	require.Len(t, points, 3)

	assert.Equal(t, at(8), points[0].Time)
	assert.Equal(t, 88.0, *points[0].HeartRate)
	assert.Equal(t, 118.0, *points[0].SystolicBP)

	assert.Equal(t, at(10), points[1].Time)
	assert.Equal(t, 102.0, *points[1].HeartRate)
	assert.Equal(t, 38.4, *points[1].Temperature)
	assert.Nil(t, points[1].SpO2)

	assert.Equal(t, at(12), points[2].Time)
	assert.Equal(t, 91.0, *points[2].SpO2)
}

func TestExtract_VitalsWinOverLegacyFields(t *testing.T) {
	evaluations := []*domain.Evaluation{
		{
			Vitals:    map[string]any{"notes": "patient refused"},
			InputData: map[string]any{"hr": 75},
			CreatedAt: at(8),
		},
	}

	assert.Empty(t, Extract(evaluations))
}

func TestExtract_Idempotent(t *testing.T) {
	evaluations := history()

	first := Extract(evaluations)
	second := Extract(evaluations)

	assert.Equal(t, first, second)
}

func TestExtract_IdempotentWithCaseCollidingKeys(t *testing.T) {
	evaluations := []*domain.Evaluation{
		{ID: 1, Vitals: map[string]any{"SpO2": 95, "SPO2": 88, "spO2": 91}, CreatedAt: at(8)},
	}

	first := Extract(evaluations)
	require.Len(t, first, 1)
	require.NotNil(t, first[0].SpO2)
	assert.Equal(t, 88.0, *first[0].SpO2)

	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Extract(evaluations))
	}
}

func TestExtract_Empty(t *testing.T) {
	points := Extract(nil)

	assert.NotNil(t, points)
	assert.Empty(t, points)
}
