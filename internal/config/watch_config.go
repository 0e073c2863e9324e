package config

import "time"

// WatchConfig defines which files in the local directory are mirrored
type WatchConfig struct {
	Patterns     []string `json:"patterns,omitempty" yaml:"patterns,omitempty" validate:"dive,required"`
	DebounceMs   int      `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty" validate:"min=0"`
	MoveWindowMs int      `json:"move_window_ms,omitempty" yaml:"move_window_ms,omitempty" validate:"min=0"`
}

// NewDefaultWatchConfig creates default watch configuration
func NewDefaultWatchConfig() WatchConfig {
	patterns := make([]string, len(DefaultWatchPatterns))
	copy(patterns, DefaultWatchPatterns)
	return WatchConfig{
		Patterns:     patterns,
		DebounceMs:   DefaultWatchDebounceMs,
		MoveWindowMs: DefaultWatchMoveWindowMs,
	}
}

func (c WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c WatchConfig) MoveWindow() time.Duration {
	return time.Duration(c.MoveWindowMs) * time.Millisecond
}
