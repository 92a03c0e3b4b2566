package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger for production and a colored console logger
// for every other environment.
func New(env string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	return config.Build()
}

// Must is New for main packages that cannot continue without a logger.
func Must(env string) *zap.Logger {
	l, err := New(env)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return l
}
