package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/domain"
)

const evaluationSelect = `
	SELECT e.id, e.patient_id, e.symptoms, e.vitals, e.labs, e.input_data,
		   e.raw_features, e.diagnosis, e.created_at, e.updated_at`

// EvaluationRepository persists evaluations in Postgres with their JSON
// payloads in jsonb columns.
type EvaluationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *pgxpool.Pool, logger *logrus.Logger) *EvaluationRepository {
	return &EvaluationRepository{
		db:  db,
		log: logger,
	}
}

// CreateEvaluation inserts evaluation. A zero CreatedAt is set by the
// database.
func (r *EvaluationRepository) CreateEvaluation(ctx context.Context, evaluation *domain.Evaluation) error {
	cols, err := encodeEvaluation(evaluation)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO evaluations (
			patient_id, symptoms, vitals, labs, input_data, raw_features, diagnosis, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), COALESCE($8, NOW())
		)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		evaluation.PatientID,
		cols.symptoms,
		cols.vitals,
		cols.labs,
		cols.inputData,
		cols.rawFeatures,
		cols.diagnosis,
		optionalTime(evaluation.CreatedAt),
	).Scan(&evaluation.ID, &evaluation.CreatedAt, &evaluation.UpdatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": evaluation.PatientID,
			"error":      err,
		}).Error("Failed to create evaluation")
		return fmt.Errorf("creating evaluation: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"evaluation_id": evaluation.ID,
		"patient_id":    evaluation.PatientID,
	}).Debug("Evaluation created")

	return nil
}

// UpdateDiagnosis stores the diagnosis of an existing evaluation.
func (r *EvaluationRepository) UpdateDiagnosis(ctx context.Context, evaluationID int64, diagnosis *domain.Diagnosis) error {
	data, err := encodeJSON(diagnosis)
	if err != nil {
		return fmt.Errorf("encoding diagnosis: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE evaluations SET diagnosis = $1, updated_at = NOW() WHERE id = $2`,
		data, evaluationID,
	)
	if err != nil {
		return fmt.Errorf("updating diagnosis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("evaluation %d not found: %w", evaluationID, domain.ErrNotFound)
	}
	return nil
}

// GetEvaluation returns one evaluation of the patient.
func (r *EvaluationRepository) GetEvaluation(ctx context.Context, patientID, evaluationID int64) (*domain.Evaluation, error) {
	query := evaluationSelect + `
		FROM evaluations e
		WHERE e.id = $1 AND e.patient_id = $2`

	evaluation, err := scanEvaluation(r.db.QueryRow(ctx, query, evaluationID, patientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("evaluation %d not found: %w", evaluationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting evaluation: %w", err)
	}
	return evaluation, nil
}

// LatestForPatient returns the newest evaluation, or nil if there is none.
func (r *EvaluationRepository) LatestForPatient(ctx context.Context, patientID int64) (*domain.Evaluation, error) {
	query := evaluationSelect + `
		FROM evaluations e
		WHERE e.patient_id = $1
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT 1`

	evaluation, err := scanEvaluation(r.db.QueryRow(ctx, query, patientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest evaluation: %w", err)
	}
	return evaluation, nil
}

// ListForPatient returns all evaluations of the patient in the given order.
func (r *EvaluationRepository) ListForPatient(ctx context.Context, patientID int64, order domain.SortOrder) ([]*domain.Evaluation, error) {
	query := evaluationSelect + `
		FROM evaluations e
		WHERE e.patient_id = $1
		ORDER BY ` + orderClause(order)

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	defer rows.Close()

	evaluations := []*domain.Evaluation{}
	for rows.Next() {
		evaluation, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		evaluations = append(evaluations, evaluation)
	}
	return evaluations, rows.Err()
}

// ListForDoctor returns every evaluation of the doctor's patients, oldest
// first.
func (r *EvaluationRepository) ListForDoctor(ctx context.Context, doctorID int64) ([]*domain.PatientEvaluation, error) {
	query := evaluationSelect + `, p.name
		FROM evaluations e
		JOIN patients p ON p.id = e.patient_id
		WHERE p.doctor_id = $1
		ORDER BY ` + orderClause(domain.OldestFirst)

	rows, err := r.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("listing doctor evaluations: %w", err)
	}
	defer rows.Close()

	evaluations := []*domain.PatientEvaluation{}
	for rows.Next() {
		var pe domain.PatientEvaluation
		if err := scanEvaluationInto(rows, &pe.Evaluation, &pe.PatientName); err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		evaluations = append(evaluations, &pe)
	}
	return evaluations, rows.Err()
}

func orderClause(order domain.SortOrder) string {
	if order == domain.NewestFirst {
		return "e.created_at DESC, e.id DESC"
	}
	return "e.created_at ASC, e.id ASC"
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanEvaluation(row rowScanner) (*domain.Evaluation, error) {
	var e domain.Evaluation
	if err := scanEvaluationInto(row, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// scanEvaluationInto scans the evaluationSelect columns followed by extra.
func scanEvaluationInto(row rowScanner, e *domain.Evaluation, extra ...any) error {
	var cols evaluationColumns
	dest := []any{
		&e.ID, &e.PatientID, &cols.symptoms, &cols.vitals, &cols.labs,
		&cols.inputData, &cols.rawFeatures, &cols.diagnosis, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	return cols.decode(e)
}
