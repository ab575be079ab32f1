// Package recovery keeps long-running front ends alive: panics in handler
// goroutines are recorded instead of crashing the process, and small state
// files are written atomically with retries.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrorHandler records recovered failures.
type ErrorHandler struct {
	mu         sync.RWMutex
	errorLog   []ErrorEntry
	maxLogSize int
	write      RetryStrategy
	log        *zap.Logger
}

// ErrorEntry represents a logged error
type ErrorEntry struct {
	Timestamp  time.Time
	Error      error
	Context    string
	Operation  string
	Recovered  bool
	StackTrace string
}

// RetryStrategy defines how to retry an operation
type RetryStrategy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NewErrorHandler creates a handler logging to log (nil discards).
func NewErrorHandler(log *zap.Logger) *ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorHandler{
		maxLogSize: 100,
		write: RetryStrategy{
			MaxRetries:   3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
		},
		log: log,
	}
}

func (eh *ErrorHandler) record(entry ErrorEntry) {
	eh.mu.Lock()
	eh.errorLog = append(eh.errorLog, entry)
	if len(eh.errorLog) > eh.maxLogSize {
		eh.errorLog = eh.errorLog[len(eh.errorLog)-eh.maxLogSize:]
	}
	eh.mu.Unlock()
}

func (eh *ErrorHandler) logger() *zap.Logger {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return eh.log
}

// HandleError records and logs err without stopping execution.
func (eh *ErrorHandler) HandleError(err error, context, operation string) {
	if err == nil {
		return
	}
	eh.record(ErrorEntry{
		Timestamp: time.Now(),
		Error:     err,
		Context:   context,
		Operation: operation,
	})
	eh.logger().Error("operation failed",
		zap.String("context", context),
		zap.String("operation", operation),
		zap.Error(err))
}

// RecoverFromPanic must be deferred directly.
func (eh *ErrorHandler) RecoverFromPanic(context string) {
	if r := recover(); r != nil {
		eh.recovered(context, r)
	}
}

func (eh *ErrorHandler) recovered(context string, r any) {
	entry := ErrorEntry{
		Timestamp:  time.Now(),
		Error:      fmt.Errorf("panic recovered: %v", r),
		Context:    context,
		Operation:  "panic_recovery",
		Recovered:  true,
		StackTrace: string(debug.Stack()),
	}
	eh.record(entry)
	eh.logger().Error("panic recovered",
		zap.String("context", context),
		zap.Any("panic", r),
		zap.String("stack", entry.StackTrace))
}

// Go runs fn in a goroutine guarded against panics.
func (eh *ErrorHandler) Go(context string, fn func()) {
	go func() {
		defer eh.RecoverFromPanic(context)
		fn()
	}()
}

// WrapWithRecovery runs fn and turns a panic into an error.
func (eh *ErrorHandler) WrapWithRecovery(context string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			eh.recovered(context, r)
			err = fmt.Errorf("%s: panic: %v", context, r)
		}
	}()
	return fn()
}

// SafeFileWrite replaces path with data through a temp file and rename, so
// readers never see a partial file. Transient failures are retried.
func (eh *ErrorHandler) SafeFileWrite(path string, data []byte, perm os.FileMode) error {
	s := eh.write
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.InitialDelay
	b.MaxInterval = s.MaxDelay
	b.Multiplier = s.Multiplier
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return writeAtomic(path, data, perm)
	}, backoff.WithMaxRetries(b, uint64(s.MaxRetries)))
	if err != nil {
		eh.HandleError(err, path, "file_write")
		return fmt.Errorf("write %s after %d attempts: %w", path, attempts, err)
	}
	return nil
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// GetRecentErrors returns up to count of the latest entries, oldest first.
func (eh *ErrorHandler) GetRecentErrors(count int) []ErrorEntry {
	eh.mu.RLock()
	defer eh.mu.RUnlock()

	if count > len(eh.errorLog) {
		count = len(eh.errorLog)
	}
	if count <= 0 {
		return nil
	}
	result := make([]ErrorEntry, count)
	copy(result, eh.errorLog[len(eh.errorLog)-count:])
	return result
}

// Global error handler instance
var (
	globalHandler *ErrorHandler
	once          sync.Once
)

// GetGlobalHandler returns the process-wide handler. SetLogger may be called
// before first use.
func GetGlobalHandler() *ErrorHandler {
	once.Do(func() {
		globalHandler = NewErrorHandler(nil)
	})
	return globalHandler
}

// SetLogger points the global handler at l.
func SetLogger(l *zap.Logger) {
	h := GetGlobalHandler()
	h.mu.Lock()
	h.log = l
	h.mu.Unlock()
}

// RecoverFromPanic is a convenience function for the global handler
func RecoverFromPanic(context string) {
	if r := recover(); r != nil {
		GetGlobalHandler().recovered(context, r)
	}
}

// Go is a convenience function for the global handler
func Go(context string, fn func()) {
	GetGlobalHandler().Go(context, fn)
}

// SafeFileWrite is a convenience function for the global handler
func SafeFileWrite(path string, data []byte, perm os.FileMode) error {
	return GetGlobalHandler().SafeFileWrite(path, data, perm)
}

// WrapWithRecovery is a convenience function for the global handler
func WrapWithRecovery(context string, fn func() error) error {
	return GetGlobalHandler().WrapWithRecovery(context, fn)
}
