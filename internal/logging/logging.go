package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a sugared zap logger shared by the CLI and the pipeline.
type Logger struct {
	*zap.SugaredLogger
}

// NewLogger builds a console logger. Verbose enables debug output and caller
// annotations.
func NewLogger(verbose bool) *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
	}

	base, err := cfg.Build()
	if err != nil {
		return NewNop()
	}
	return New(base)
}

// New wraps an existing zap logger.
func New(base *zap.Logger) *Logger {
	if base == nil {
		return NewNop()
	}
	return &Logger{SugaredLogger: base.Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return NewNop().Named(name)
	}
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	if l == nil {
		return NewNop()
	}
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
