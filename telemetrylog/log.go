// Package telemetrylog provides the structured logger factory shared by the
// producer, consumer, and discovery workers.
package telemetrylog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger for the given level name ("debug", "info",
// "warn", "error"). An unrecognized level falls back to "info". Production
// builds should pass "info" or higher; "debug" is intended for local
// development only, matching zap's own NewDevelopment/NewProduction split.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// Noop returns a logger that discards everything, used by tests and by
// callers that construct a worker without an explicit logger option.
func Noop() *zap.Logger {
	return zap.NewNop()
}
