package logger

import (
	"github.com/aleister1102/imgsync/internal/config"
	"github.com/rs/zerolog"
)

// Logger represents the main logger with configuration
type Logger struct {
	zerolog zerolog.Logger
	config  LoggerConfig
}

// GetZerolog returns the underlying zerolog instance
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zerolog
}

// Config returns the resolved configuration
func (l *Logger) Config() LoggerConfig {
	return l.config
}

// New creates the root logger from the log_config section
func New(cfg config.LogConfig, debug bool) (zerolog.Logger, error) {
	logger, err := NewLoggerBuilder().WithConfig(cfg).WithDebug(debug).Build()
	if err != nil {
		return zerolog.Logger{}, err
	}
	return *logger.GetZerolog(), nil
}
