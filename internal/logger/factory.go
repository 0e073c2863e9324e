package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// WriterStrategy wraps a destination in a format-specific writer
type WriterStrategy interface {
	CreateWriter(out io.Writer) io.Writer
}

// JSONWriterStrategy writes raw zerolog JSON lines
type JSONWriterStrategy struct{}

func (s *JSONWriterStrategy) CreateWriter(out io.Writer) io.Writer {
	return out
}

// ConsoleWriterStrategy writes human readable, optionally colored lines
type ConsoleWriterStrategy struct {
	NoColor bool
}

func (s *ConsoleWriterStrategy) CreateWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    s.NoColor,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

// TextWriterStrategy is the console layout without colors
type TextWriterStrategy struct{}

func (s *TextWriterStrategy) CreateWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

// WriterFactory creates writers based on format
type WriterFactory struct {
	strategies map[LogFormat]WriterStrategy
	console    io.Writer
}

// NewWriterFactory creates a new writer factory writing console output to stderr
func NewWriterFactory() *WriterFactory {
	return &WriterFactory{
		strategies: map[LogFormat]WriterStrategy{
			FormatJSON:    &JSONWriterStrategy{},
			FormatConsole: &ConsoleWriterStrategy{NoColor: false},
			FormatText:    &TextWriterStrategy{},
		},
		console: os.Stderr,
	}
}

// CreateConsoleWriter creates a console writer
func (wf *WriterFactory) CreateConsoleWriter(format LogFormat) io.Writer {
	strategy, exists := wf.strategies[format]
	if !exists {
		strategy = &ConsoleWriterStrategy{NoColor: false}
	}
	return strategy.CreateWriter(wf.console)
}

// CreateFileWriter creates a rotating file writer. Console format is written without colors.
func (wf *WriterFactory) CreateFileWriter(config LoggerConfig) io.Writer {
	if dir := filepath.Dir(config.FilePath); dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}

	lumberjackLogger := &lumberjack.Logger{
		Filename:   config.FilePath,
		MaxSize:    config.MaxSizeMB,
		LocalTime:  true,
		MaxBackups: config.MaxBackups,
	}

	if config.Format == FormatConsole {
		return (&ConsoleWriterStrategy{NoColor: true}).CreateWriter(lumberjackLogger)
	}

	strategy, exists := wf.strategies[config.Format]
	if !exists {
		strategy = &JSONWriterStrategy{}
	}
	return strategy.CreateWriter(lumberjackLogger)
}
