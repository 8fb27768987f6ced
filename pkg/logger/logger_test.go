package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)
	log.Info("hello", zap.String("k", "v"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(zap.NewNop(), MultiLoggerConfig{Level: "info"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logs_dir")
}

func TestMultiLogger_WritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(zap.NewNop(), MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.Stream().Info("stream opened", zap.String("url", "ws://backend/ws"))
	ml.Command().Info("pause sent")
	ml.Error().Info("below warn threshold")
	ml.Error().Warn("orphan progress event", zap.String("task_id", "u9"))
	ml.Close()

	reader := NewLogReader(dir)

	stream, err := reader.ReadLogs(CategoryStream, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, stream, 1)
	assert.Equal(t, "stream opened", stream[0].Message)
	assert.Equal(t, "stream", stream[0].Logger)
	assert.Equal(t, "ws://backend/ws", stream[0].Fields["url"])

	errs, err := reader.ReadLogs(CategoryError, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "warn", errs[0].Level)
}

func TestLogReader_MissingFile(t *testing.T) {
	reader := NewLogReader(t.TempDir())

	entries, err := reader.ReadLogs(CategoryCommand, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogReader_SearchAndLimit(t *testing.T) {
	dir := t.TempDir()
	lines := "{\"level\":\"info\",\"message\":\"pause sent\"}\n" +
		"plain text line\n" +
		"{\"level\":\"error\",\"message\":\"resume failed\"}\n" +
		"{\"level\":\"info\",\"message\":\"resume sent\"}\n"
	require.NoError(t, os.WriteFile(CategoryLogPath(dir, CategoryCommand, time.Now()), []byte(lines), 0644))

	reader := NewLogReader(dir)

	last, err := reader.ReadLogs(CategoryCommand, time.Now(), 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "resume failed", last[0].Message)

	found, err := reader.SearchLogs(CategoryCommand, time.Now(), "RESUME", 0)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	plain, err := reader.SearchLogs(CategoryCommand, time.Now(), "plain", 0)
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.Equal(t, "plain text line", plain[0].Message)
}

func TestValidateCategory(t *testing.T) {
	assert.True(t, ValidateCategory(CategoryStream))
	assert.False(t, ValidateCategory("download"))
}
