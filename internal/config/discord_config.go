package config

import "time"

// DiscordConfig defines the Discord webhook notification backend.
// The backend is enabled when Webhook is set.
type DiscordConfig struct {
	Webhook        string `json:"webhook,omitempty" yaml:"webhook,omitempty" validate:"omitempty,url"`
	Username       string `json:"username,omitempty" yaml:"username,omitempty"`
	Author         string `json:"author,omitempty" yaml:"author,omitempty"`
	AuthorIcon     string `json:"author_icon,omitempty" yaml:"author_icon,omitempty" validate:"omitempty,url"`
	EmbedTitle     string `json:"embed_title,omitempty" yaml:"embed_title,omitempty"`
	EmbedColor     string `json:"embed_color,omitempty" yaml:"embed_color,omitempty" validate:"omitempty,embedcolor"`
	IDsFile        string `json:"ids_file,omitempty" yaml:"ids_file,omitempty"`
	RateLimit      int    `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" validate:"min=0"`
	RatePeriodSecs int    `json:"rate_period_seconds,omitempty" yaml:"rate_period_seconds,omitempty" validate:"min=0"`
	MaxRetries     int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"min=0"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=0"`
	Proxy          string `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
}

// NewDefaultDiscordConfig creates default Discord configuration
func NewDefaultDiscordConfig() DiscordConfig {
	return DiscordConfig{
		Author:         DefaultDiscordAuthor,
		EmbedTitle:     DefaultDiscordEmbedTitle,
		EmbedColor:     DefaultDiscordEmbedColor,
		IDsFile:        DefaultDiscordIDsFile,
		RateLimit:      DefaultDiscordRateLimit,
		RatePeriodSecs: DefaultDiscordRatePeriodS,
		MaxRetries:     DefaultDiscordMaxRetries,
		TimeoutSeconds: DefaultRegistryTimeoutSeconds,
	}
}

// Enabled reports whether a webhook is configured
func (c DiscordConfig) Enabled() bool {
	return c.Webhook != ""
}

func (c DiscordConfig) RatePeriod() time.Duration {
	return time.Duration(c.RatePeriodSecs) * time.Second
}

func (c DiscordConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
