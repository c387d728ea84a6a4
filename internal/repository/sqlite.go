package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/database"
	"github.com/clindx-engine/internal/domain"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS patients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doctor_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		age INTEGER NOT NULL DEFAULT 0,
		gender TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_patients_doctor_id ON patients(doctor_id);

	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		symptoms TEXT NOT NULL DEFAULT '[]',
		vitals TEXT,
		labs TEXT,
		input_data TEXT,
		raw_features TEXT,
		diagnosis TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_patient_created ON evaluations(patient_id, created_at, id);
	`

// SQLiteStore implements the patient and evaluation repositories on a
// single SQLite file for the standalone server. Timestamps are stored in
// UTC so they order lexically.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := database.OpenSQLite(dbPath, sqliteSchema)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, log: logger}, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePatient inserts patient and fills its ID and timestamps.
func (s *SQLiteStore) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (doctor_id, name, age, gender, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, patient.DoctorID, patient.Name, patient.Age, patient.Gender, now, now)
	if err != nil {
		return fmt.Errorf("creating patient: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	patient.ID = id
	patient.CreatedAt = now
	patient.UpdatedAt = now

	s.log.WithFields(logrus.Fields{
		"patient_id": patient.ID,
		"doctor_id":  patient.DoctorID,
	}).Info("Patient created")
	return nil
}

// GetPatient returns the patient if it belongs to doctorID.
func (s *SQLiteStore) GetPatient(ctx context.Context, doctorID, patientID int64) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, doctor_id, name, age, gender, created_at, updated_at
		FROM patients
		WHERE id = ? AND doctor_id = ?
	`, patientID, doctorID)

	patient, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %d not found: %w", patientID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting patient: %w", err)
	}
	return patient, nil
}

// ListPatients returns the doctor's patients in creation order.
func (s *SQLiteStore) ListPatients(ctx context.Context, doctorID int64) ([]*domain.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doctor_id, name, age, gender, created_at, updated_at
		FROM patients
		WHERE doctor_id = ?
		ORDER BY id
	`, doctorID)
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

// DeletePatient removes the patient and its evaluations.
func (s *SQLiteStore) DeletePatient(ctx context.Context, doctorID, patientID int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM patients WHERE id = ? AND doctor_id = ?", patientID, doctorID)
	if err != nil {
		return fmt.Errorf("deleting patient: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting patient: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("patient %d not found: %w", patientID, domain.ErrNotFound)
	}
	return nil
}

// CreateEvaluation inserts evaluation. A zero CreatedAt means now.
func (s *SQLiteStore) CreateEvaluation(ctx context.Context, evaluation *domain.Evaluation) error {
	cols, err := encodeEvaluation(evaluation)
	if err != nil {
		return err
	}

	createdAt := evaluation.CreatedAt.UTC()
	if evaluation.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			patient_id, symptoms, vitals, labs, input_data, raw_features, diagnosis, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		evaluation.PatientID,
		string(cols.symptoms),
		nullableText(cols.vitals),
		nullableText(cols.labs),
		nullableText(cols.inputData),
		nullableText(cols.rawFeatures),
		nullableText(cols.diagnosis),
		createdAt,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("creating evaluation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	evaluation.ID = id
	evaluation.CreatedAt = createdAt
	evaluation.UpdatedAt = createdAt
	return nil
}

// UpdateDiagnosis stores the diagnosis of an existing evaluation.
func (s *SQLiteStore) UpdateDiagnosis(ctx context.Context, evaluationID int64, diagnosis *domain.Diagnosis) error {
	data, err := encodeJSON(diagnosis)
	if err != nil {
		return fmt.Errorf("encoding diagnosis: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE evaluations SET diagnosis = ?, updated_at = ? WHERE id = ?",
		nullableText(data), time.Now().UTC(), evaluationID,
	)
	if err != nil {
		return fmt.Errorf("updating diagnosis: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating diagnosis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("evaluation %d not found: %w", evaluationID, domain.ErrNotFound)
	}
	return nil
}

// GetEvaluation returns one evaluation of the patient.
func (s *SQLiteStore) GetEvaluation(ctx context.Context, patientID, evaluationID int64) (*domain.Evaluation, error) {
	row := s.db.QueryRowContext(ctx, evaluationSelect+`
		FROM evaluations e
		WHERE e.id = ? AND e.patient_id = ?
	`, evaluationID, patientID)

	evaluation, err := scanSQLiteEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evaluation %d not found: %w", evaluationID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting evaluation: %w", err)
	}
	return evaluation, nil
}

// LatestForPatient returns the newest evaluation, or nil if there is none.
func (s *SQLiteStore) LatestForPatient(ctx context.Context, patientID int64) (*domain.Evaluation, error) {
	row := s.db.QueryRowContext(ctx, evaluationSelect+`
		FROM evaluations e
		WHERE e.patient_id = ?
		ORDER BY `+orderClause(domain.NewestFirst)+`
		LIMIT 1
	`, patientID)

	evaluation, err := scanSQLiteEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest evaluation: %w", err)
	}
	return evaluation, nil
}

// ListForPatient returns all evaluations of the patient in the given order.
func (s *SQLiteStore) ListForPatient(ctx context.Context, patientID int64, order domain.SortOrder) ([]*domain.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, evaluationSelect+`
		FROM evaluations e
		WHERE e.patient_id = ?
		ORDER BY `+orderClause(order), patientID)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	defer rows.Close()

	evaluations := []*domain.Evaluation{}
	for rows.Next() {
		evaluation, err := scanSQLiteEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		evaluations = append(evaluations, evaluation)
	}
	return evaluations, rows.Err()
}

// ListForDoctor returns every evaluation of the doctor's patients, oldest
// first.
func (s *SQLiteStore) ListForDoctor(ctx context.Context, doctorID int64) ([]*domain.PatientEvaluation, error) {
	rows, err := s.db.QueryContext(ctx, evaluationSelect+`, p.name
		FROM evaluations e
		JOIN patients p ON p.id = e.patient_id
		WHERE p.doctor_id = ?
		ORDER BY `+orderClause(domain.OldestFirst), doctorID)
	if err != nil {
		return nil, fmt.Errorf("listing doctor evaluations: %w", err)
	}
	defer rows.Close()

	evaluations := []*domain.PatientEvaluation{}
	for rows.Next() {
		var pe domain.PatientEvaluation
		if err := scanSQLiteEvaluationInto(rows, &pe.Evaluation, &pe.PatientName); err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		evaluations = append(evaluations, &pe)
	}
	return evaluations, rows.Err()
}

func nullableText(data []byte) sql.NullString {
	if data == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func scanSQLiteEvaluation(row rowScanner) (*domain.Evaluation, error) {
	var e domain.Evaluation
	if err := scanSQLiteEvaluationInto(row, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// scanSQLiteEvaluationInto reads the TEXT JSON columns before decoding them
// the same way as the jsonb ones.
func scanSQLiteEvaluationInto(row rowScanner, e *domain.Evaluation, extra ...any) error {
	var symptoms string
	var vitals, labs, inputData, rawFeatures, diagnosis sql.NullString
	dest := []any{
		&e.ID, &e.PatientID, &symptoms, &vitals, &labs,
		&inputData, &rawFeatures, &diagnosis, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	cols := evaluationColumns{
		symptoms:    []byte(symptoms),
		vitals:      nullBytes(vitals),
		labs:        nullBytes(labs),
		inputData:   nullBytes(inputData),
		rawFeatures: nullBytes(rawFeatures),
		diagnosis:   nullBytes(diagnosis),
	}
	return cols.decode(e)
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
