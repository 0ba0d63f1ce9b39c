package bdhost

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, level := range []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
		t.Run(level.String(), func(t *testing.T) {
			logger, err := NewLogger(BaseEnvironment{LogLevel: level})
			require.NoError(t, err)
			require.True(t, logger.Core().Enabled(level))
			require.Equal(t, level != zapcore.DebugLevel, !logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestDispatchLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewDispatchLogger(zap.New(core))

	for _, tt := range []struct {
		name     string
		log      func()
		expMsg   string
		expLevel zapcore.Level
	}{
		{"unhandled serve error", func() { logger.LogUnhandledServeError(errors.New("a")) },
			"unhandled server error", zapcore.ErrorLevel},
		{"implicit flush error", func() { logger.LogImplicitFlushError(errors.New("b")) },
			"error while flushing implicitly", zapcore.ErrorLevel},
		{"write error", func() { logger.LogWriteError(errors.New("c")) },
			"error while writing result", zapcore.WarnLevel},
		{"recovery failure", func() { logger.LogRecoveryFailure(errors.New("d"), errors.New("e")) },
			"failed to write error response", zapcore.ErrorLevel},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tt.log()

			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			require.Equal(t, tt.expMsg, entries[0].Message)
			require.Equal(t, tt.expLevel, entries[0].Level)
			require.Equal(t, "bdispatch.bdhost", entries[0].LoggerName)
		})
	}
}

func TestRecoveryFailureFields(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	NewDispatchLogger(zap.New(core)).LogRecoveryFailure(errors.New("original"), errors.New("secondary"))

	fields := logs.All()[0].ContextMap()
	require.Equal(t, "original", fields["original"])
	require.Equal(t, "secondary", fields["secondary"])
}
