package et

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu        sync.Mutex
	logger       = zap.NewNop()
	debugEnabled bool
)

// SetDebugEnabled toggles diagnostic logging for the whole process. When
// enabled, boundary operations log load/forward milestones and anomalies to
// stderr; when disabled (the default) the package is silent.
func SetDebugEnabled(enabled bool) {
	logMu.Lock()
	defer logMu.Unlock()

	if enabled == debugEnabled {
		return
	}
	debugEnabled = enabled

	if !enabled {
		logger = zap.NewNop()
		return
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	built, err := cfg.Build()
	if err != nil {
		// Leave the nop logger in place; the toggle carries no correctness
		// semantics.
		debugEnabled = false
		return
	}
	logger = built.Named("et")
}

// DebugEnabled reports whether diagnostic logging is on.
func DebugEnabled() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return debugEnabled
}

// SetLogger replaces the package logger, for callers that want boundary
// diagnostics routed into their own logging stack. Passing nil restores the
// nop logger. Overrides the SetDebugEnabled default sink.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()

	if l == nil {
		logger = zap.NewNop()
		debugEnabled = false
		return
	}
	logger = l
	debugEnabled = true
}

func logDebug(msg string, fields ...zap.Field) {
	logMu.Lock()
	l := logger
	logMu.Unlock()
	l.Debug(msg, fields...)
}

func logWarn(msg string, fields ...zap.Field) {
	logMu.Lock()
	l := logger
	logMu.Unlock()
	l.Warn(msg, fields...)
}
