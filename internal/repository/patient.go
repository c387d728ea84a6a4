package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/domain"
)

// PatientRepository persists patients in Postgres. Every read is scoped to
// the owning doctor.
type PatientRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *pgxpool.Pool, logger *logrus.Logger) *PatientRepository {
	return &PatientRepository{
		db:  db,
		log: logger,
	}
}

// CreatePatient inserts patient and fills its ID and timestamps.
func (r *PatientRepository) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	query := `
		INSERT INTO patients (doctor_id, name, age, gender)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		patient.DoctorID,
		patient.Name,
		patient.Age,
		patient.Gender,
	).Scan(&patient.ID, &patient.CreatedAt, &patient.UpdatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"doctor_id": patient.DoctorID,
			"error":     err,
		}).Error("Failed to create patient")
		return fmt.Errorf("creating patient: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": patient.ID,
		"doctor_id":  patient.DoctorID,
	}).Info("Patient created")

	return nil
}

// GetPatient returns the patient if it belongs to doctorID.
func (r *PatientRepository) GetPatient(ctx context.Context, doctorID, patientID int64) (*domain.Patient, error) {
	query := `
		SELECT id, doctor_id, name, COALESCE(age, 0), COALESCE(gender, ''), created_at, updated_at
		FROM patients
		WHERE id = $1 AND doctor_id = $2`

	patient, err := scanPatient(r.db.QueryRow(ctx, query, patientID, doctorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient %d not found: %w", patientID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting patient: %w", err)
	}
	return patient, nil
}

// ListPatients returns the doctor's patients in creation order.
func (r *PatientRepository) ListPatients(ctx context.Context, doctorID int64) ([]*domain.Patient, error) {
	query := `
		SELECT id, doctor_id, name, COALESCE(age, 0), COALESCE(gender, ''), created_at, updated_at
		FROM patients
		WHERE doctor_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	defer rows.Close()

	patients := []*domain.Patient{}
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}

// DeletePatient removes the patient and, through the foreign key, its
// evaluations.
func (r *PatientRepository) DeletePatient(ctx context.Context, doctorID, patientID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = $1 AND doctor_id = $2`, patientID, doctorID)
	if err != nil {
		return fmt.Errorf("deleting patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %d not found: %w", patientID, domain.ErrNotFound)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"doctor_id":  doctorID,
	}).Info("Patient deleted")
	return nil
}

func scanPatient(row rowScanner) (*domain.Patient, error) {
	var p domain.Patient
	err := row.Scan(&p.ID, &p.DoctorID, &p.Name, &p.Age, &p.Gender, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
