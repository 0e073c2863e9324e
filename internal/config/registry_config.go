package config

import (
	"strings"
	"time"
)

// RegistryConfig defines the shortcode registry worker
type RegistryConfig struct {
	WorkerURL      string `json:"worker_url" yaml:"worker_url" validate:"required,url"`
	WorkerPSK      string `json:"worker_psk" yaml:"worker_psk" validate:"required"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=1"`
	UserAgent      string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Proxy          string `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
}

// NewDefaultRegistryConfig creates default registry configuration
func NewDefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		TimeoutSeconds: DefaultRegistryTimeoutSeconds,
		UserAgent:      DefaultRegistryUserAgent,
	}
}

func (c RegistryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *RegistryConfig) normalize() {
	c.WorkerURL = strings.TrimRight(c.WorkerURL, "/")
}
