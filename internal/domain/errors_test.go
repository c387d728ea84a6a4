package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "Invalid evaluation payload",
			details:   "vitals must be an object",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrDatabaseError,
			message:   "Database connection failed",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("dose", "must not be negative", -1)

	expected := "validation error for field 'dose': must not be negative"
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}
	if err.Value != -1 {
		t.Errorf("Expected value -1, got %v", err.Value)
	}
}

func TestIsNotFound(t *testing.T) {
	wrapped := fmt.Errorf("patient 7: %w", ErrNotFound)

	if !IsNotFound(wrapped) {
		t.Error("Expected wrapped ErrNotFound to be detected")
	}
	if IsNotFound(fmt.Errorf("connection reset")) {
		t.Error("Expected unrelated error not to be detected as not found")
	}
}

func TestVitalsSnapshotEmpty(t *testing.T) {
	hr := 88.0

	if !(VitalsSnapshot{}).Empty() {
		t.Error("Expected zero snapshot to be empty")
	}
	if (VitalsSnapshot{HeartRate: &hr}).Empty() {
		t.Error("Expected snapshot with heart rate not to be empty")
	}
}

func TestDiagnosisValidate(t *testing.T) {
	score := 0.4
	outOfRange := 1.5

	tests := []struct {
		name      string
		diagnosis *Diagnosis
		wantErr   bool
	}{
		{"nil", nil, true},
		{"missing primary", &Diagnosis{HighRisk: true}, true},
		{"valid minimal", &Diagnosis{PrimaryDiagnosis: "Viral Fever"}, false},
		{"valid full", &Diagnosis{
			PrimaryDiagnosis: "Viral Fever",
			RiskScore:        &score,
			TopDiagnoses:     []RankedDiagnosis{{Name: "Viral Fever", Confidence: 0.6}},
		}, false},
		{"risk score out of range", &Diagnosis{PrimaryDiagnosis: "X", RiskScore: &outOfRange}, true},
		{"confidence out of range", &Diagnosis{
			PrimaryDiagnosis: "X",
			TopDiagnoses:     []RankedDiagnosis{{Name: "Y", Confidence: -0.1}},
		}, true},
		{"unnamed differential", &Diagnosis{
			PrimaryDiagnosis: "X",
			TopDiagnoses:     []RankedDiagnosis{{Confidence: 0.2}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.diagnosis.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
