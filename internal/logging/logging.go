package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. APP_ENV=dev gets colored console output,
// everything else JSON at info level.
func New(appEnv string) (*zap.Logger, error) {
	if strings.EqualFold(appEnv, "dev") || strings.EqualFold(appEnv, "development") {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	return zap.NewProduction()
}

// Must is New for main: it falls back to a no-op logger instead of failing.
func Must(appEnv string) *zap.Logger {
	l, err := New(appEnv)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
