package config

// HistoryConfig controls the sqlite journal of sync outcomes
type HistoryConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty" validate:"required_if=Enabled true"`
}

// NewDefaultHistoryConfig creates default history configuration
func NewDefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled: false,
		DBPath:  DefaultHistoryDBPath,
	}
}

// StatusConfig controls the optional /metrics and /healthz server.
// An empty Listen disables it.
type StatusConfig struct {
	Listen            string `json:"listen,omitempty" yaml:"listen,omitempty" validate:"omitempty,hostname_port"`
	RequestsPerMinute int    `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty" validate:"min=0"`
}

// NewDefaultStatusConfig creates default status configuration
func NewDefaultStatusConfig() StatusConfig {
	return StatusConfig{
		RequestsPerMinute: 60,
	}
}
