package logger

import (
	"io"
	stdlog "log" // Standard Go log package, aliased to avoid conflict with zerolog field

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/config"
	"github.com/rs/zerolog"
)

// LoggerBuilder provides fluent interface for building loggers
type LoggerBuilder struct {
	config  LoggerConfig
	factory *WriterFactory
}

// NewLoggerBuilder creates a new logger builder
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{
		config:  DefaultLoggerConfig(),
		factory: NewWriterFactory(),
	}
}

// WithConfig sets the logger configuration
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig) *LoggerBuilder {
	lb.config = FromLogConfig(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)
	return lb
}

// WithDebug forces debug level when enabled
func (lb *LoggerBuilder) WithDebug(debug bool) *LoggerBuilder {
	if debug {
		lb.config.Level = zerolog.DebugLevel
	}
	return lb
}

// WithConsoleOutput redirects console output, mostly for tests
func (lb *LoggerBuilder) WithConsoleOutput(w io.Writer) *LoggerBuilder {
	lb.factory.console = w
	return lb
}

// Build creates the logger instance
func (lb *LoggerBuilder) Build() (*Logger, error) {
	if err := lb.validateConfig(); err != nil {
		return nil, err
	}

	writers := lb.createWriters()
	if len(writers) == 0 {
		return nil, common.NewError("no output writers configured")
	}

	multiWriter := zerolog.MultiLevelWriter(writers...)
	zerologInstance := zerolog.New(multiWriter).
		Level(lb.config.Level).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(lb.config.Level)
	lb.configureStandardLog(zerologInstance)

	return &Logger{
		zerolog: zerologInstance,
		config:  lb.config,
	}, nil
}

// validateConfig validates the logger configuration
func (lb *LoggerBuilder) validateConfig() error {
	if lb.config.EnableFile && lb.config.FilePath == "" {
		return common.NewValidationError("file_path", lb.config.FilePath, "file path required when file logging enabled")
	}

	if lb.config.MaxSizeMB <= 0 {
		return common.NewValidationError("max_size_mb", lb.config.MaxSizeMB, "max size must be positive")
	}

	return nil
}

// createWriters creates the appropriate writers based on configuration
func (lb *LoggerBuilder) createWriters() []io.Writer {
	var writers []io.Writer

	if lb.config.EnableConsole {
		writers = append(writers, lb.factory.CreateConsoleWriter(lb.config.Format))
	}

	if lb.config.EnableFile {
		writers = append(writers, lb.factory.CreateFileWriter(lb.config))
	}

	return writers
}

// configureStandardLog routes the standard log package through zerolog
func (lb *LoggerBuilder) configureStandardLog(logger zerolog.Logger) {
	stdlog.SetOutput(logger)
	stdlog.SetFlags(0)
}
