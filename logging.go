package kvstorage

import "go.uber.org/zap"

// Logger is the injectable logging sink consulted at the bound-rejection,
// cache-refusal, and backend-failure points the original engine logged
// from directly. The zero value of noopLogger is safe to use.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...zap.Field)  {}
func (noopLogger) Warn(string, ...zap.Field)  {}
func (noopLogger) Error(string, ...zap.Field) {}

// zapLogger adapts a *zap.Logger to the Logger interface.
type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger wraps an existing zap logger for use as a Storage's Logger.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

func (z *zapLogger) Info(msg string, fields ...zap.Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...zap.Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...zap.Field) { z.l.Error(msg, fields...) }
