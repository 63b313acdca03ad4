// Package errlog appends API failures to an append-only log file. Writing
// the log line is an explicit call by the layer that caught the error, so
// error values themselves stay free of filesystem side effects.
package errlog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath is where API failures are recorded, relative to the working
// directory.
const DefaultPath = "log/error_log.log"

// Log is a file-backed error log.
type Log struct {
	logger *zap.Logger
	file   *os.File
}

// Open opens (or creates) the log file at path for appending.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating error log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening error log: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.ErrorLevel)

	return &Log{logger: zap.New(core), file: f}, nil
}

// Append records one service-reported API failure.
func (l *Log) Append(endpoint, reason string) {
	l.logger.Error("api call failed",
		zap.String("endpoint", endpoint),
		zap.String("error", reason))
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	_ = l.logger.Sync()
	return l.file.Close()
}
