// Package evaluation composes the scoring components into the evaluation
// workflows: creating and diagnosing evaluations, the dashboard summary,
// early warnings, vitals trends and the audit trail.
package evaluation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/diagnosis"
	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/logging"
	"github.com/clindx-engine/internal/scoring"
	"github.com/clindx-engine/internal/trend"
	"github.com/clindx-engine/internal/vitals"
)

// Diagnoser always yields a diagnosis. *diagnosis.Adapter implements it.
type Diagnoser interface {
	Diagnose(ctx context.Context, req domain.PredictionRequest) *domain.Diagnosis
}

// AuditTrail records and reads audit entries. audit.Store implements it.
type AuditTrail interface {
	domain.AuditRecorder
	ListForDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*domain.AuditEntry, error)
	CountForDoctor(ctx context.Context, doctorID int64) (int64, error)
	ExportJSON(ctx context.Context, doctorID int64, writer io.Writer) error
}

// CreateEvaluationInput is the raw payload of a new evaluation. Symptoms may
// be a delimited string, a JSON array string or a list; vitals and labs
// are used only when they are mappings.
type CreateEvaluationInput struct {
	Symptoms any `json:"symptoms"`
	Vitals   any `json:"vitals"`
	Labs     any `json:"labs"`
}

// AuditPage is one page of a doctor's audit trail.
type AuditPage struct {
	Entries []*domain.AuditEntry `json:"entries"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// Options tunes the service. Zero values select the defaults.
type Options struct {
	// Cache holds dashboard summaries; nil disables caching.
	Cache domain.SummaryCache
	// Location defines calendar days for risk-trend buckets. Default UTC.
	Location *time.Location
	// RecentLimit is the number of recent evaluations on the dashboard.
	// Default 5.
	RecentLimit int
}

// Service orchestrates evaluation workflows for one doctor at a time.
type Service struct {
	patients    domain.PatientRepository
	evaluations domain.EvaluationRepository
	diagnoser   Diagnoser
	audit       AuditTrail
	cache       domain.SummaryCache
	location    *time.Location
	recentLimit int
	logger      *logrus.Logger
}

// NewService wires the service collaborators.
func NewService(
	patients domain.PatientRepository,
	evaluations domain.EvaluationRepository,
	diagnoser Diagnoser,
	audit AuditTrail,
	logger *logrus.Logger,
	opts Options,
) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	return &Service{
		patients:    patients,
		evaluations: evaluations,
		diagnoser:   diagnoser,
		audit:       audit,
		cache:       opts.Cache,
		location:    opts.Location,
		recentLimit: opts.RecentLimit,
		logger:      logger,
	}
}

// CreateEvaluation persists a new evaluation for the doctor's patient,
// diagnoses it, stores the diagnosis and records one audit entry. A
// failing predictor never fails the call; the fallback diagnosis is stored
// instead.
func (s *Service) CreateEvaluation(ctx context.Context, doctorID, patientID int64, in CreateEvaluationInput) (*domain.Evaluation, error) {
	if _, err := s.patients.GetPatient(ctx, doctorID, patientID); err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}

	evaluation := &domain.Evaluation{
		PatientID: patientID,
		Symptoms:  diagnosis.NormalizeSymptoms(in.Symptoms),
		Vitals:    mapping(in.Vitals),
		Labs:      mapping(in.Labs),
	}
	if err := s.evaluations.CreateEvaluation(ctx, evaluation); err != nil {
		return nil, fmt.Errorf("persisting evaluation: %w", err)
	}

	result := s.diagnoser.Diagnose(ctx, diagnosis.BuildRequest(evaluation))
	if err := s.evaluations.UpdateDiagnosis(ctx, evaluation.ID, result); err != nil {
		return nil, fmt.Errorf("persisting diagnosis: %w", err)
	}
	evaluation.Diagnosis = result

	entry := &domain.AuditEntry{
		DoctorID:   doctorID,
		Action:     domain.ActionCreateEvaluation,
		EntityType: domain.EntityEvaluation,
		EntityID:   evaluation.ID,
		Metadata: map[string]any{
			"patient_id":        patientID,
			"symptoms":          evaluation.Symptoms,
			"primary_diagnosis": result.PrimaryDiagnosis,
			"high_risk":         result.HighRisk,
		},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("recording audit entry: %w", err)
	}

	s.invalidateSummary(ctx, doctorID)

	logging.FromContext(ctx, s.logger).WithFields(logrus.Fields{
		"doctor_id":         doctorID,
		"patient_id":        patientID,
		"evaluation_id":     evaluation.ID,
		"primary_diagnosis": result.PrimaryDiagnosis,
		"high_risk":         result.HighRisk,
	}).Info("Evaluation created")

	return evaluation, nil
}

// ListEvaluations returns the patient's evaluations, newest first.
func (s *Service) ListEvaluations(ctx context.Context, doctorID, patientID int64) ([]*domain.Evaluation, error) {
	if _, err := s.patients.GetPatient(ctx, doctorID, patientID); err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}
	evaluations, err := s.evaluations.ListForPatient(ctx, patientID, domain.NewestFirst)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	return evaluations, nil
}

// GetEvaluation returns one evaluation of the doctor's patient.
func (s *Service) GetEvaluation(ctx context.Context, doctorID, patientID, evaluationID int64) (*domain.Evaluation, error) {
	if _, err := s.patients.GetPatient(ctx, doctorID, patientID); err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}
	evaluation, err := s.evaluations.GetEvaluation(ctx, patientID, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("loading evaluation: %w", err)
	}
	return evaluation, nil
}

// EarlyWarnings scores every patient of the doctor from their latest
// evaluation. Results are never cached.
func (s *Service) EarlyWarnings(ctx context.Context, doctorID int64) ([]domain.EarlyWarningResult, error) {
	patients, err := s.patients.ListPatients(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}

	results := make([]domain.EarlyWarningResult, 0, len(patients))
	for _, patient := range patients {
		latest, err := s.evaluations.LatestForPatient(ctx, patient.ID)
		if err != nil {
			return nil, fmt.Errorf("loading latest evaluation of patient %d: %w", patient.ID, err)
		}
		results = append(results, scoring.EarlyWarning(patient, latest))
	}
	return results, nil
}

// EarlyWarningForPatient scores one patient of the doctor.
func (s *Service) EarlyWarningForPatient(ctx context.Context, doctorID, patientID int64) (*domain.EarlyWarningResult, error) {
	patient, err := s.patients.GetPatient(ctx, doctorID, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}
	latest, err := s.evaluations.LatestForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading latest evaluation: %w", err)
	}
	result := scoring.EarlyWarning(patient, latest)
	return &result, nil
}

// VitalsTrend charts the patient's vitals history, oldest first.
func (s *Service) VitalsTrend(ctx context.Context, doctorID, patientID int64) (*domain.VitalsTrend, error) {
	patient, err := s.patients.GetPatient(ctx, doctorID, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}
	evaluations, err := s.evaluations.ListForPatient(ctx, patientID, domain.OldestFirst)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	return &domain.VitalsTrend{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Trends:      trend.Extract(evaluations),
	}, nil
}

// AuditLogs returns one page of the doctor's audit trail, newest first.
func (s *Service) AuditLogs(ctx context.Context, doctorID int64, limit, offset int) (*AuditPage, error) {
	entries, err := s.audit.ListForDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	total, err := s.audit.CountForDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}
	return &AuditPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// ExportAuditLogs writes the doctor's full audit trail as JSON.
func (s *Service) ExportAuditLogs(ctx context.Context, doctorID int64, w io.Writer) error {
	if err := s.audit.ExportJSON(ctx, doctorID, w); err != nil {
		return fmt.Errorf("exporting audit entries: %w", err)
	}
	return nil
}

func mapping(raw any) map[string]any {
	m, ok := vitals.AsMapping(raw)
	if !ok {
		return nil
	}
	return m
}
