// Package logger builds the process-wide zap logger.
package logger

import "go.uber.org/zap"

// New returns a production logger when env is "production" and a
// development logger otherwise.
func New(env string) *zap.Logger {
	if env == "production" {
		logger, _ := zap.NewProduction()
		return logger
	}
	logger, _ := zap.NewDevelopment()
	return logger
}
