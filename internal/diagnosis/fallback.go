package diagnosis

import (
	"context"

	"github.com/clindx-engine/internal/domain"
)

// Fixed fallback content.
const (
	FallbackPrimaryDiagnosis = "General Viral Infection"
	FallbackExplanation      = "AI service unavailable. Fallback used."
)

// Fallback returns a fresh copy of the fixed fallback diagnosis.
func Fallback() *domain.Diagnosis {
	return &domain.Diagnosis{
		PrimaryDiagnosis: FallbackPrimaryDiagnosis,
		HighRisk:         false,
		Explanation:      FallbackExplanation,
		TopDiagnoses: []domain.RankedDiagnosis{
			{Name: "Viral Fever", Confidence: 0.65},
			{Name: "Common Cold", Confidence: 0.25},
			{Name: "Bacterial Infection", Confidence: 0.10},
		},
	}
}

// FallbackPredictor always answers with the fixed fallback diagnosis.
type FallbackPredictor struct{}

// Predict implements domain.Predictor.
func (FallbackPredictor) Predict(context.Context, domain.PredictionRequest) (*domain.Diagnosis, error) {
	return Fallback(), nil
}
