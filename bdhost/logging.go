package bdhost

import (
	"github.com/advdv/bdispatch"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding. BD_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(err error) {
	l.Logger.Error("unhandled server error", zap.Error(err))
}

func (l zapLogger) LogImplicitFlushError(err error) {
	l.Logger.Error("error while flushing implicitly", zap.Error(err))
}

func (l zapLogger) LogWriteError(err error) {
	l.Logger.Warn("error while writing result", zap.Error(err))
}

func (l zapLogger) LogRecoveryFailure(original, secondary error) {
	l.Logger.Error("failed to write error response",
		zap.NamedError("original", original),
		zap.NamedError("secondary", secondary))
}

// NewDispatchLogger adapts a zap logger for the dispatch pipeline.
func NewDispatchLogger(l *zap.Logger) bdispatch.Logger {
	return zapLogger{l.Named("bdispatch").Named("bdhost")}
}
