package audit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindx-engine/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Record(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(int64(1), domain.ActionCreateEvaluation, domain.EntityEvaluation, int64(42), `{"patient_id":3}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), now))

	entry := &domain.AuditEntry{
		DoctorID:   1,
		Action:     domain.ActionCreateEvaluation,
		EntityType: domain.EntityEvaluation,
		EntityID:   42,
		Metadata:   map[string]any{"patient_id": 3},
	}
	require.NoError(t, store.Record(context.Background(), entry))

	assert.Equal(t, int64(9), entry.ID)
	assert.Equal(t, now, entry.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordNilMetadata(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(int64(1), "VIEW", "Patient", int64(2), "{}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	err := store.Record(context.Background(), &domain.AuditEntry{DoctorID: 1, Action: "VIEW", EntityType: "Patient", EntityID: 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFailurePropagates(t *testing.T) {
	store, mock := newMockStore(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnError(dbErr)

	err := store.Record(context.Background(), &domain.AuditEntry{DoctorID: 1, Action: "X", EntityType: "Y", EntityID: 1})
	assert.ErrorIs(t, err, dbErr)
}

func TestPostgresStore_ListForDoctor(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "doctor_id", "action", "entity_type", "entity_id", "metadata", "created_at"}).
		AddRow(int64(2), int64(1), domain.ActionCreateEvaluation, domain.EntityEvaluation, int64(11), []byte(`{"patient_id":3}`), created).
		AddRow(int64(1), int64(1), domain.ActionCreateEvaluation, domain.EntityEvaluation, int64(10), []byte(`not json`), created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs")).
		WithArgs(int64(1), DefaultListLimit, 0).
		WillReturnRows(rows)

	entries, err := store.ListForDoctor(context.Background(), 1, 0, -5)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(11), entries[0].EntityID)
	assert.Equal(t, 3.0, entries[0].Metadata["patient_id"])
	assert.Equal(t, map[string]any{}, entries[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountForDoctor(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE doctor_id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	count, err := store.CountForDoctor(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}

func TestPostgresStore_ExportJSON(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "doctor_id", "action", "entity_type", "entity_id", "metadata", "created_at"}).
		AddRow(int64(1), int64(1), domain.ActionCreateEvaluation, domain.EntityEvaluation, int64(10), []byte(`{}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs")).
		WithArgs(int64(1), maxExportLimit, 0).
		WillReturnRows(rows)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), 1, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, int64(1), export.DoctorID)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Entries, 1)
	assert.Equal(t, domain.ActionCreateEvaluation, export.Entries[0].Action)
}

// getTestDB returns a database connection for testing.
// Skip test if TEST_DATABASE_URL is not set.
func getTestDB(t *testing.T) *sql.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			doctor_id BIGINT NOT NULL,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM audit_logs")
	require.NoError(t, err)

	return db
}

func TestPostgresStore_Integration(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		entry := &domain.AuditEntry{
			DoctorID:   1,
			Action:     domain.ActionCreateEvaluation,
			EntityType: domain.EntityEvaluation,
			EntityID:   i,
			Metadata:   map[string]any{"patient_id": 5},
		}
		require.NoError(t, store.Record(ctx, entry))
		assert.NotZero(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	}

	entries, err := store.ListForDoctor(ctx, 1, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].EntityID)

	count, err := store.CountForDoctor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
