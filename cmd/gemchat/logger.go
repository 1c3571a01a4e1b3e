package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/elee1766/gemchat/src/config"
	"github.com/lmittmann/tint"
)

// logFileName is created under the state log directory when --log-file is set
const logFileName = "gemchat.log"

// newLogger builds the process logger. Logs go to stderr through tint, or as
// JSON when the format is "json". A file target always gets JSON.
// The returned closer must be called on exit.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return slog.New(slog.NewJSONHandler(file, opts)), file, nil
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(stderr, opts)), io.NopCloser(nil), nil
	}
	return slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      opts.Level,
		TimeFormat: "15:04:05",
	})), io.NopCloser(nil), nil
}

// defaultLogFile is the file used by --log-file.
func defaultLogFile() string {
	return filepath.Join(config.GetDefaultStoragePaths().LogDir, logFileName)
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
