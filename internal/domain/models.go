// Package domain contains the core entities of the clinical evaluation and
// risk-scoring engine: patients, evaluations, diagnoses and the derived
// early-warning, trend and simulation results.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Patient is owned by exactly one doctor.
type Patient struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"doctor_id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Evaluation is one diagnostic encounter for a patient.
//
// Vitals and Labs are loosely typed: keys and value shapes vary between
// clients, so every consumer goes through the vitals resolver instead of
// probing keys directly. InputData and RawFeatures hold payloads written by
// older clients and are only consulted by the trend extractor.
type Evaluation struct {
	ID          int64          `json:"id"`
	PatientID   int64          `json:"patient_id"`
	Symptoms    []string       `json:"symptoms"`
	Vitals      map[string]any `json:"vitals,omitempty"`
	Labs        map[string]any `json:"labs,omitempty"`
	InputData   any            `json:"input_data,omitempty"`
	RawFeatures any            `json:"raw_features,omitempty"`
	Diagnosis   *Diagnosis     `json:"diagnosis"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PatientEvaluation pairs an evaluation with the name of its patient, as
// returned by doctor-wide listings.
type PatientEvaluation struct {
	Evaluation
	PatientName string `json:"patient_name"`
}

// RankedDiagnosis is one entry of a predictor's differential.
type RankedDiagnosis struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Diagnosis is the canonical predictor result embedded in an evaluation.
type Diagnosis struct {
	PrimaryDiagnosis string            `json:"primary_diagnosis"`
	HighRisk         bool              `json:"high_risk"`
	RiskScore        *float64          `json:"risk_score,omitempty"`
	TopDiagnoses     []RankedDiagnosis `json:"top_diagnoses,omitempty"`
	Explanation      string            `json:"explanation,omitempty"`
	ModelOutputs     map[string]any    `json:"model_outputs,omitempty"`
}

// Validate rejects partial or out-of-range diagnoses so they are never
// persisted.
func (d *Diagnosis) Validate() error {
	if d == nil {
		return errors.New("diagnosis is empty")
	}
	if strings.TrimSpace(d.PrimaryDiagnosis) == "" {
		return errors.New("primary_diagnosis is required")
	}
	if d.RiskScore != nil && !unitInterval(*d.RiskScore) {
		return fmt.Errorf("risk_score %v outside [0,1]", *d.RiskScore)
	}
	for i, ranked := range d.TopDiagnoses {
		if strings.TrimSpace(ranked.Name) == "" {
			return fmt.Errorf("top_diagnoses[%d] has no name", i)
		}
		if !unitInterval(ranked.Confidence) {
			return fmt.Errorf("top_diagnoses[%d] confidence %v outside [0,1]", i, ranked.Confidence)
		}
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// PredictionRequest is the predictor's request contract. Vitals are ordered
// temperature, heart_rate, systolic_bp, spo2; labs are ordered glucose,
// cholesterol, resting_bp. Unknown readings are sent as null.
type PredictionRequest struct {
	Symptoms []string    `json:"symptoms"`
	Vitals   [4]*float64 `json:"vitals"`
	Labs     [3]*float64 `json:"labs"`
}

// VitalsSnapshot holds canonical vitals. A nil field means unknown and must
// never be read as a clinical zero.
type VitalsSnapshot struct {
	HeartRate   *float64 `json:"heart_rate"`
	SpO2        *float64 `json:"spo2"`
	Temperature *float64 `json:"temperature"`
	SystolicBP  *float64 `json:"systolic_bp"`
}

// Empty reports whether no field could be resolved.
func (v VitalsSnapshot) Empty() bool {
	return v.HeartRate == nil && v.SpO2 == nil && v.Temperature == nil && v.SystolicBP == nil
}

// LabsSnapshot holds the canonical lab values sent to the predictor.
type LabsSnapshot struct {
	Glucose     *float64 `json:"glucose"`
	Cholesterol *float64 `json:"cholesterol"`
	RestingBP   *float64 `json:"resting_bp"`
}

// EarlyWarningResult is recomputed on every request and never cached.
type EarlyWarningResult struct {
	PatientID        int64      `json:"patient_id"`
	PatientName      string     `json:"patient_name"`
	Score            int        `json:"score"`
	RiskLabel        string     `json:"risk_label"`
	Triggers         []string   `json:"triggers"`
	LastEvaluationAt *time.Time `json:"last_evaluation_at"`
}

// TrendPoint is one charted sample of a patient's vitals history.
type TrendPoint struct {
	Time time.Time `json:"time"`
	VitalsSnapshot
}

// VitalsTrend is the trend series of one patient.
type VitalsTrend struct {
	PatientID   int64        `json:"patient_id"`
	PatientName string       `json:"patient_name"`
	Trends      []TrendPoint `json:"trends"`
}

// AuditEntry records an action a doctor performed on an entity.
type AuditEntry struct {
	ID         int64          `json:"id"`
	DoctorID   int64          `json:"doctor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Audit actions and entity types written by the engine.
const (
	ActionCreateEvaluation = "CREATE_EVALUATION"
	EntityEvaluation       = "Evaluation"
)

// RiskTrendBucket aggregates one calendar day of evaluations.
type RiskTrendBucket struct {
	Date          string `json:"date"`
	HighRiskCount int    `json:"high_risk_count"`
	Total         int    `json:"total"`
}

// DiagnosisCount is one entry of the diagnosis distribution.
type DiagnosisCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RecentEvaluation is a dashboard row for a recent evaluation.
type RecentEvaluation struct {
	EvaluationID     int64     `json:"evaluation_id"`
	PatientID        int64     `json:"patient_id"`
	Patient          string    `json:"patient"`
	PrimaryDiagnosis string    `json:"primary_diagnosis"`
	HighRisk         bool      `json:"high_risk"`
	CreatedAt        time.Time `json:"created_at"`
}

// DashboardSummary aggregates all evaluations of one doctor's patients.
type DashboardSummary struct {
	ActivePatients        int                `json:"active_patients"`
	EvaluationsRun        int                `json:"evaluations_run"`
	HighRiskFlags         int                `json:"high_risk_flags"`
	RiskTrend             []RiskTrendBucket  `json:"risk_trend"`
	DiagnosisDistribution []DiagnosisCount   `json:"diagnosis_distribution"`
	RecentEvaluations     []RecentEvaluation `json:"recent_evaluations"`
}
