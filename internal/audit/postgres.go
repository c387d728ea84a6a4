package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/clindx-engine/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL audit store.
// It expects the audit_logs table to exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL audit store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Record appends entry to audit_logs.
func (s *PostgresStore) Record(ctx context.Context, entry *domain.AuditEntry) error {
	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (doctor_id, action, entity_type, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		entry.DoctorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// ListForDoctor returns the doctor's entries, newest first.
func (s *PostgresStore) ListForDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*domain.AuditEntry, error) {
	limit, offset = normalizePage(limit, offset)

	query := `
		SELECT id, doctor_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_logs
		WHERE doctor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	result := []*domain.AuditEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, entry)
	}

	return result, rows.Err()
}

// CountForDoctor returns the number of entries of the doctor.
func (s *PostgresStore) CountForDoctor(ctx context.Context, doctorID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE doctor_id = $1", doctorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// ExportJSON writes all of the doctor's entries to writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, doctorID int64, writer io.Writer) error {
	all, err := s.ListForDoctor(ctx, doctorID, maxExportLimit, 0)
	if err != nil {
		return err
	}
	return writeExport(writer, doctorID, all)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
