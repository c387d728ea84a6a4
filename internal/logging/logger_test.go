package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindx-engine/internal/domain"
)

func TestNew_JSONFieldNames(t *testing.T) {
	logger, err := New(domain.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.WithField("patient_id", 7).Info("evaluation created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evaluation created", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
	assert.EqualValues(t, 7, entry["patient_id"])
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNew_Levels(t *testing.T) {
	logger, err := New(domain.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger, err = New(domain.LoggingConfig{Level: "loud"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNew_TextFormat(t *testing.T) {
	logger, err := New(domain.LoggingConfig{Level: "info", Format: "text"})
	require.NoError(t, err)

	_, ok := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clindx.log")

	logger, err := New(domain.LoggingConfig{Level: "info", Output: "file", Filename: path})
	require.NoError(t, err)
	logger.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNew_BadOutput(t *testing.T) {
	_, err := New(domain.LoggingConfig{Output: "file"})
	assert.Error(t, err)

	_, err = New(domain.LoggingConfig{Output: "syslog"})
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	logger := logrus.New()
	entry := FromContext(ctx, logger)
	assert.Equal(t, "req-1", entry.Data["request_id"])

	entry = FromContext(context.Background(), logger)
	assert.NotContains(t, entry.Data, "request_id")
}
