// Package audit stores the append-only trail of actions doctors perform.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/clindx-engine/internal/domain"
)

// Store defines audit trail storage. It satisfies domain.AuditRecorder.
type Store interface {
	// Record appends entry and fills its ID and CreatedAt.
	Record(ctx context.Context, entry *domain.AuditEntry) error

	// ListForDoctor returns the doctor's entries, newest first.
	ListForDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*domain.AuditEntry, error)

	// CountForDoctor returns the number of entries of the doctor.
	CountForDoctor(ctx context.Context, doctorID int64) (int64, error)

	// ExportJSON writes all of the doctor's entries to writer.
	ExportJSON(ctx context.Context, doctorID int64, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string               `json:"version"`
	DoctorID   int64                `json:"doctor_id"`
	ExportedAt time.Time            `json:"exported_at"`
	Count      int                  `json:"count"`
	Entries    []*domain.AuditEntry `json:"entries"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// DefaultListLimit applies when callers pass a non-positive limit.
const DefaultListLimit = 50

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func writeExport(writer io.Writer, doctorID int64, entries []*domain.AuditEntry) error {
	export := &Export{
		Version:    "1.0",
		DoctorID:   doctorID,
		ExportedAt: time.Now().UTC(),
		Count:      len(entries),
		Entries:    entries,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func encodeMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encoding audit metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(raw []byte) map[string]any {
	var metadata map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &metadata) != nil {
		return map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return metadata
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*domain.AuditEntry, error) {
	entry := &domain.AuditEntry{}
	var metadata []byte

	err := s.Scan(
		&entry.ID, &entry.DoctorID, &entry.Action, &entry.EntityType,
		&entry.EntityID, &metadata, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Metadata = decodeMetadata(metadata)
	return entry, nil
}
