package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aleister1102/imgsync/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultLogger(t *testing.T) {
	cfg := config.NewDefaultLogConfig()
	cfg.LogFile = ""
	_, err := New(cfg, false)
	require.NoError(t, err)
}

func TestBuilder_DebugOverridesLevel(t *testing.T) {
	cfg := config.LogConfig{LogLevel: "error", LogFormat: "json"}
	var buf bytes.Buffer

	l, err := NewLoggerBuilder().WithConfig(cfg).WithDebug(true).WithConsoleOutput(&buf).Build()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, l.Config().Level)

	l.GetZerolog().Debug().Str("module", "test").Msg("hello")
	assert.Contains(t, buf.String(), `"module":"test"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestBuilder_FileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	cfg := config.LogConfig{LogLevel: "info", LogFormat: "console", LogFile: path, MaxLogSizeMB: 5, MaxLogBackups: 1}

	l, err := NewLoggerBuilder().WithConfig(cfg).WithConsoleOutput(&bytes.Buffer{}).Build()
	require.NoError(t, err)
	l.GetZerolog().Info().Msg("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.NotContains(t, string(data), "\x1b[", "file output must not be colored")
}

func TestFromLogConfig(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		want   zerolog.Level
		fmt    LogFormat
	}{
		{name: "defaults", want: zerolog.InfoLevel, fmt: FormatConsole},
		{name: "warn json", level: "WARN", format: "json", want: zerolog.WarnLevel, fmt: FormatJSON},
		{name: "unknown level", level: "loud", format: "text", want: zerolog.InfoLevel, fmt: FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromLogConfig(tt.level, tt.format, "", 0, 0)
			assert.Equal(t, tt.want, cfg.Level)
			assert.Equal(t, tt.fmt, cfg.Format)
			assert.False(t, cfg.EnableFile)
			assert.Equal(t, 5, cfg.MaxSizeMB)
			assert.Equal(t, 1, cfg.MaxBackups)
		})
	}
}
