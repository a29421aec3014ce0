// SPDX-License-Identifier: Apache-2.0

// Package logging provides zap based loggers for the API.
package logging

import (
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger implements ethapp.Logger on top of zap.
type Logger struct {
	log *zap.Logger
}

// NewLogger wraps a zap logger. Nil means no logging.
func NewLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log.WithOptions(zap.AddCallerSkip(1))}
}

// Error implements ethapp.Logger.
func (logger *Logger) Error(msg string, err error) {
	logger.log.Error(msg, zap.Error(err))
}

// Info implements ethapp.Logger.
func (logger *Logger) Info(msg string) {
	logger.log.Info(msg)
}

// Debug implements ethapp.Logger.
func (logger *Logger) Debug(msg string) {
	logger.log.Debug(msg)
}

// New builds a console logger at the given level ("debug", "info", "warn", "error").
func New(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(parsed)
	config.DisableStacktrace = true
	log, err := config.Build()
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return log, nil
}
