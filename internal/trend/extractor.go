// Package trend builds the charted vitals series of a patient's history.
package trend

import (
	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/vitals"
)

// Extract resolves one point per evaluation, preserving input order.
// Callers pass evaluations oldest first. Evaluations without any resolvable
// vital are dropped.
func Extract(evaluations []*domain.Evaluation) []domain.TrendPoint {
	points := make([]domain.TrendPoint, 0, len(evaluations))

	for _, evaluation := range evaluations {
		source, ok := vitalsSource(evaluation)
		if !ok {
			continue
		}

		snapshot := vitals.Resolve(source)
		if snapshot.Empty() {
			continue
		}

		points = append(points, domain.TrendPoint{
			Time:           evaluation.CreatedAt,
			VitalsSnapshot: snapshot,
		})
	}

	return points
}

// vitalsSource picks the first present of vitals, input_data and
// raw_features; the winner must be a mapping.
func vitalsSource(evaluation *domain.Evaluation) (map[string]any, bool) {
	var candidates []any
	if evaluation.Vitals != nil {
		candidates = append(candidates, evaluation.Vitals)
	}
	candidates = append(candidates, evaluation.InputData, evaluation.RawFeatures)

	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		return vitals.AsMapping(candidate)
	}
	return nil, false
}
