package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryStream  LogCategory = "stream"  // Stream lifecycle and store events (JSON)
	CategoryCommand LogCategory = "command" // Outbound commands and their results (JSON)
	CategoryError   LogCategory = "error"   // Faults and application errors (JSON)
)

// AllCategories lists the categories that get their own file
var AllCategories = []LogCategory{CategoryStream, CategoryCommand, CategoryError}

// MultiLogger tees the main logger into dated per-category JSON files.
type MultiLogger struct {
	base    *zap.Logger
	loggers map[LogCategory]*zap.Logger
	files   []*os.File
	config  MultiLoggerConfig
	mu      sync.RWMutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger around base
func NewMultiLogger(base *zap.Logger, config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		base:    base,
		loggers: make(map[LogCategory]*zap.Logger),
		config:  config,
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	for _, category := range AllCategories {
		categoryLevel := level
		if category == CategoryError {
			categoryLevel = zapcore.WarnLevel
		}
		core, err := ml.createCategoryCore(category, categoryLevel)
		if err != nil {
			ml.Close()
			return nil, fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		ml.loggers[category] = base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		})).Named(string(category))
	}

	return ml, nil
}

func (ml *MultiLogger) createCategoryCore(category LogCategory, level zapcore.Level) (zapcore.Core, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	file, err := os.OpenFile(CategoryLogPath(ml.config.LogsDir, category, time.Now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ml.files = append(ml.files, file)

	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level), nil
}

// CategoryLogPath returns the dated log file path for a category
func CategoryLogPath(logsDir string, category LogCategory, date time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", category, date.Format("20060102")))
}

// LogsDir returns the logs directory path
func (ml *MultiLogger) LogsDir() string {
	return ml.config.LogsDir
}

// Get returns the logger for a category, falling back to the base logger
func (ml *MultiLogger) Get(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.base
}

// Stream returns the stream category logger
func (ml *MultiLogger) Stream() *zap.Logger {
	return ml.Get(CategoryStream)
}

// Command returns the command category logger
func (ml *MultiLogger) Command() *zap.Logger {
	return ml.Get(CategoryCommand)
}

// Error returns the error category logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.Get(CategoryError)
}

// Close flushes all loggers and closes the category files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	for _, f := range ml.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	ml.files = nil
	return lastErr
}
