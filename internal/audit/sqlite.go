package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/clindx-engine/internal/database"
	"github.com/clindx-engine/internal/domain"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doctor_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_doctor_created ON audit_logs(doctor_id, created_at);
	`

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := database.OpenSQLite(dbPath, sqliteSchema)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Record appends entry to audit_logs.
func (s *SQLiteStore) Record(ctx context.Context, entry *domain.AuditEntry) error {
	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (doctor_id, action, entity_type, entity_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.DoctorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		metadata,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now

	return nil
}

// ListForDoctor returns the doctor's entries, newest first.
func (s *SQLiteStore) ListForDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*domain.AuditEntry, error) {
	limit, offset = normalizePage(limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doctor_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_logs
		WHERE doctor_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, doctorID, limit, offset)
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
func (s *SQLiteStore) CountForDoctor(ctx context.Context, doctorID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE doctor_id = ?", doctorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// ExportJSON writes all of the doctor's entries to writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, doctorID int64, writer io.Writer) error {
	all, err := s.ListForDoctor(ctx, doctorID, maxExportLimit, 0)
	if err != nil {
		return err
	}
	return writeExport(writer, doctorID, all)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
