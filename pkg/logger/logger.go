// Package logger provides the zap-backed logging used across GrowthFlow: a
// global logger for the command and a per-storage-dir debug file logger.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugFile is the log file name created under the storage directory.
const DebugFile = "debug.log"

// Logger is a printf-style file logger kept for front ends that surface the
// tail of the log (the TUI /logs command).
type Logger struct {
	sugar    *zap.SugaredLogger
	filePath string
}

// New opens (or creates) storagePath/debug.log for appending.
func New(storagePath string) (*Logger, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	logPath := filepath.Join(storagePath, DebugFile)
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	cfg := encoderConfig()
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(logFile), zapcore.DebugLevel)
	zapLogger := zap.New(&sanitizingCore{Core: fileCore})

	return &Logger{
		sugar:    zapLogger.Sugar(),
		filePath: logPath,
	}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.filePath }

func (l *Logger) Debug(format string, v ...any) { l.sugar.Debugf(format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.sugar.Infof(format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.sugar.Warnf(format, v...) }
func (l *Logger) Error(format string, v ...any) { l.sugar.Errorf(format, v...) }

// Zap exposes the underlying logger so callers can share the file sink.
func (l *Logger) Zap() *zap.Logger { return l.sugar.Desugar() }

// GetLastLines returns the last n lines of the log file.
func (l *Logger) GetLastLines(n int) string {
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return "Error reading log file"
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
