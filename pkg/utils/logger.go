package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerName is the root name of every kotoba logger.
const LoggerName = "kotoba"

// NewLogger returns the root logger. Debug uses zap's development config
// (console, debug level); otherwise production JSON at info level. Both use
// ISO8601 timestamps.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(LoggerName), nil
}
