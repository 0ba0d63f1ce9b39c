package bdispatch

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUnhandledServeError(err error)
	LogImplicitFlushError(err error)
	// LogWriteError is called once for every error that occurred while writing a result.
	LogWriteError(err error)
	// LogRecoveryFailure is called when writing the error response itself failed. The original error is the one
	// that is returned to the caller.
	LogRecoveryFailure(original, secondary error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(err error) {
	l.Logger.Printf("bdispatch: unhandled server error: %s", err)
}

func (l stdLogger) LogImplicitFlushError(err error) {
	l.Logger.Printf("bdispatch: error while flushing implicitly: %s", err)
}

func (l stdLogger) LogWriteError(err error) {
	l.Logger.Printf("bdispatch: error occurred while processing request: %s", err)
}

func (l stdLogger) LogRecoveryFailure(original, secondary error) {
	l.Logger.Printf("bdispatch: failed to write error to response: %s (original: %s)", secondary, original)
}

// NewStdLogger returns a Logger that prints to l, or to the default logger when l is nil.
func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}

	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogImplicitFlushError  int64
	NumLogWriteError          int64
	NumLogRecoveryFailure     int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.tb.Logf("bdispatch: unhandled server error: %s", err)
}

func (l *TestLogger) LogImplicitFlushError(err error) {
	atomic.AddInt64(&l.NumLogImplicitFlushError, 1)
	l.tb.Logf("bdispatch: error while flushing implicitly: %s", err)
}

func (l *TestLogger) LogWriteError(err error) {
	atomic.AddInt64(&l.NumLogWriteError, 1)
	l.tb.Logf("bdispatch: error occurred while processing request: %s", err)
}

func (l *TestLogger) LogRecoveryFailure(original, secondary error) {
	atomic.AddInt64(&l.NumLogRecoveryFailure, 1)
	l.tb.Logf("bdispatch: failed to write error to response: %s (original: %s)", secondary, original)
}

var _ Logger = &TestLogger{}
