package logger

import (
	"os"
	"strings"
	"sync"

	"GrowthFlow/pkg/utils"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger *zap.Logger
	globalSugar  *zap.SugaredLogger
)

// ParseLevel maps a config level name onto a zap level. Unknown names fall
// back to INFO.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// Init initializes the global zap logger. With a logFile the output is JSON
// appended to that file; otherwise console lines go to stderr. The TUI always
// passes a file so the terminal stays clean.
func Init(logLevel string, logFile string) error {
	level := ParseLevel(logLevel)

	var sink zapcore.WriteSyncer
	var enc zapcore.Encoder
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		sink = zapcore.AddSync(f)
		enc = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		sink = zapcore.Lock(os.Stderr)
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	}

	core := &sanitizingCore{Core: zapcore.NewCore(enc, sink, level)}
	l := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	mu.Lock()
	globalLogger = l
	globalSugar = l.Sugar()
	mu.Unlock()
	return nil
}

// Replace swaps the global logger, mainly for tests using zaptest/observer.
func Replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
	globalSugar = l.Sugar()
}

// GetLogger returns the global zap logger
func GetLogger() *zap.Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l == nil {
		_ = Init("INFO", "")
		mu.RLock()
		l = globalLogger
		mu.RUnlock()
	}
	return l
}

// GetSugarLogger returns the global sugared zap logger
func GetSugarLogger() *zap.SugaredLogger {
	return GetLogger().Sugar()
}

// Named returns a child of the global logger tagged with a component name.
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { GetLogger().Fatal(msg, fields...) }

func Debugf(template string, args ...interface{}) { GetSugarLogger().Debugf(template, args...) }
func Infof(template string, args ...interface{})  { GetSugarLogger().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { GetSugarLogger().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { GetSugarLogger().Errorf(template, args...) }
func Fatalf(template string, args ...interface{}) { GetSugarLogger().Fatalf(template, args...) }

// sanitizingCore scrubs secrets from messages and string fields before
// they reach the encoder.
type sanitizingCore struct {
	zapcore.Core
}

func (c *sanitizingCore) With(fields []zapcore.Field) zapcore.Core {
	return &sanitizingCore{Core: c.Core.With(sanitizeFields(fields))}
}

func (c *sanitizingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sanitizingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = utils.SanitizeLog(ent.Message)
	return c.Core.Write(ent, sanitizeFields(fields))
}

func sanitizeFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType {
			f.String = utils.SanitizeLog(f.String)
		}
		out[i] = f
	}
	return out
}
