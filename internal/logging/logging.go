// Package logging builds the zap logger shared by every component. The TUI
// owns the terminal, so logs go to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Joseda-hg/lazyjournal/internal/config"
)

// DefaultFile is the log file name used when none is configured.
const DefaultFile = "lazyjournal.log"

// FilePath resolves where logs go: the configured file, or DefaultFile next
// to the database.
func FilePath(cfg config.Config) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	if cfg.DBPath == "" || strings.Contains(cfg.DBPath, ":memory:") {
		return filepath.Join(os.TempDir(), DefaultFile)
	}
	return filepath.Join(filepath.Dir(cfg.DBPath), DefaultFile)
}

// New opens the log file and returns a logger tagged with a per-run session
// id. The returned func flushes and closes the file.
func New(cfg config.Config) (*zap.Logger, func(), error) {
	path := FilePath(cfg)
	if err := config.EnsureDir(path); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger, err := NewWriter(cfg.Log, file)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return logger, func() {
		_ = logger.Sync()
		_ = file.Close()
	}, nil
}

// NewWriter builds the logger over w.
func NewWriter(cfg config.LogConfig, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if cfg.Level == "" {
		level, err = zapcore.InfoLevel, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(w), level)
	return zap.New(core).With(zap.String("session", uuid.NewString())), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}
