package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/domain"
)

// DefaultRecentLimit is the number of evaluations shown as recent.
const DefaultRecentLimit = 5

// UnknownDiagnosis labels recent evaluations without a diagnosis.
const UnknownDiagnosis = "Unknown"

// DashboardSummary aggregates all evaluations of the doctor's patients. The
// summary is served from the cache when one is configured.
func (s *Service) DashboardSummary(ctx context.Context, doctorID int64) (*domain.DashboardSummary, error) {
	if s.cache != nil {
		summary, found, err := s.cache.Get(ctx, doctorID)
		if err != nil {
			s.logger.WithError(err).WithField("doctor_id", doctorID).Warn("Dashboard cache read failed")
		} else if found {
			return summary, nil
		}
	}

	patients, err := s.patients.ListPatients(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	evaluations, err := s.evaluations.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}

	summary := Summarize(len(patients), evaluations, s.location, s.recentLimit)

	if s.cache != nil {
		if err := s.cache.Set(ctx, doctorID, summary); err != nil {
			s.logger.WithError(err).WithField("doctor_id", doctorID).Warn("Dashboard cache write failed")
		}
	}
	return summary, nil
}

// Summarize builds a dashboard summary from evaluations ordered oldest
// first. Risk-trend buckets follow calendar days in loc; the diagnosis
// distribution keeps first-seen order.
func Summarize(activePatients int, evaluations []*domain.PatientEvaluation, loc *time.Location, recentLimit int) *domain.DashboardSummary {
	if loc == nil {
		loc = time.UTC
	}

	summary := &domain.DashboardSummary{
		ActivePatients:        activePatients,
		EvaluationsRun:        len(evaluations),
		RiskTrend:             []domain.RiskTrendBucket{},
		DiagnosisDistribution: []domain.DiagnosisCount{},
		RecentEvaluations:     []domain.RecentEvaluation{},
	}

	buckets := map[string]int{}
	diagnoses := map[string]int{}

	for _, e := range evaluations {
		highRisk := e.Diagnosis != nil && e.Diagnosis.HighRisk
		if highRisk {
			summary.HighRiskFlags++
		}

		date := e.CreatedAt.In(loc).Format(time.DateOnly)
		i, ok := buckets[date]
		if !ok {
			i = len(summary.RiskTrend)
			buckets[date] = i
			summary.RiskTrend = append(summary.RiskTrend, domain.RiskTrendBucket{Date: date})
		}
		summary.RiskTrend[i].Total++
		if highRisk {
			summary.RiskTrend[i].HighRiskCount++
		}

		if name := primaryDiagnosis(e.Diagnosis); name != "" {
			j, ok := diagnoses[name]
			if !ok {
				j = len(summary.DiagnosisDistribution)
				diagnoses[name] = j
				summary.DiagnosisDistribution = append(summary.DiagnosisDistribution, domain.DiagnosisCount{Name: name})
			}
			summary.DiagnosisDistribution[j].Count++
		}
	}

	for i := len(evaluations) - 1; i >= 0 && len(summary.RecentEvaluations) < recentLimit; i-- {
		e := evaluations[i]
		name := primaryDiagnosis(e.Diagnosis)
		if name == "" {
			name = UnknownDiagnosis
		}
		summary.RecentEvaluations = append(summary.RecentEvaluations, domain.RecentEvaluation{
			EvaluationID:     e.ID,
			PatientID:        e.PatientID,
			Patient:          e.PatientName,
			PrimaryDiagnosis: name,
			HighRisk:         e.Diagnosis != nil && e.Diagnosis.HighRisk,
			CreatedAt:        e.CreatedAt,
		})
	}

	return summary
}

func primaryDiagnosis(d *domain.Diagnosis) string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.PrimaryDiagnosis)
}

func (s *Service) invalidateSummary(ctx context.Context, doctorID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, doctorID); err != nil {
		s.logger.WithFields(logrus.Fields{
			"doctor_id": doctorID,
			"error":     err,
		}).Warn("Dashboard cache invalidation failed")
	}
}
