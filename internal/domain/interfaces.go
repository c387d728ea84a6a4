package domain

import (
	"context"
)

// Predictor maps symptoms, vitals and labs to a diagnosis. Implementations
// may fail; callers that need a guaranteed result wrap them in the
// diagnosis adapter.
type Predictor interface {
	Predict(ctx context.Context, req PredictionRequest) (*Diagnosis, error)
}

// PatientRepository reads and writes patients scoped to their doctor.
type PatientRepository interface {
	CreatePatient(ctx context.Context, patient *Patient) error
	GetPatient(ctx context.Context, doctorID, patientID int64) (*Patient, error)
	ListPatients(ctx context.Context, doctorID int64) ([]*Patient, error)
	DeletePatient(ctx context.Context, doctorID, patientID int64) error
}

// EvaluationRepository persists evaluations. Listings are ordered by
// created_at with insertion order breaking ties.
type EvaluationRepository interface {
	CreateEvaluation(ctx context.Context, evaluation *Evaluation) error
	UpdateDiagnosis(ctx context.Context, evaluationID int64, diagnosis *Diagnosis) error
	GetEvaluation(ctx context.Context, patientID, evaluationID int64) (*Evaluation, error)
	LatestForPatient(ctx context.Context, patientID int64) (*Evaluation, error)
	ListForPatient(ctx context.Context, patientID int64, order SortOrder) ([]*Evaluation, error)
	ListForDoctor(ctx context.Context, doctorID int64) ([]*PatientEvaluation, error)
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry *AuditEntry) error
}

// SummaryCache stores dashboard summaries per doctor.
type SummaryCache interface {
	Get(ctx context.Context, doctorID int64) (*DashboardSummary, bool, error)
	Set(ctx context.Context, doctorID int64, summary *DashboardSummary) error
	Invalidate(ctx context.Context, doctorID int64) error
}

// SortOrder selects chronological or reverse-chronological listings.
type SortOrder int

const (
	OldestFirst SortOrder = iota
	NewestFirst
)

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetPredictorConfig() *PredictorConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
