package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aleister1102/imgsync/internal/common"
	"gopkg.in/yaml.v3"
)

// maxConfigFileSize caps how much of a config file is read
const maxConfigFileSize = 10 * 1024 * 1024

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	SFTP      SFTPConfig     `json:"sftp" yaml:"sftp"`
	Registry  RegistryConfig `json:"registry" yaml:"registry"`
	Discord   DiscordConfig  `json:"discord,omitempty" yaml:"discord,omitempty"`
	Watch     WatchConfig    `json:"watch,omitempty" yaml:"watch,omitempty"`
	LogConfig LogConfig      `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	History   HistoryConfig  `json:"history,omitempty" yaml:"history,omitempty"`
	Status    StatusConfig   `json:"status,omitempty" yaml:"status,omitempty"`
	Debug     bool           `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		SFTP:      NewDefaultSFTPConfig(),
		Registry:  NewDefaultRegistryConfig(),
		Discord:   NewDefaultDiscordConfig(),
		Watch:     NewDefaultWatchConfig(),
		LogConfig: NewDefaultLogConfig(),
		History:   NewDefaultHistoryConfig(),
		Status:    NewDefaultStatusConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// YAML is used when the file extension is .yaml or .yml, JSON otherwise.
// Values missing from the file keep their defaults.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		if providedPath != "" {
			return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
		}
		return nil, common.NewConfigurationError("", "", "no config file found (use --config or "+ConfigPathEnv+")")
	}

	data, err := loadConfigFileContent(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize cleans up path and URL values in place
func (c *GlobalConfig) Normalize() {
	c.SFTP.normalize()
	c.Registry.normalize()
	if len(c.Watch.Patterns) == 0 {
		c.Watch.Patterns = NewDefaultWatchConfig().Patterns
	}
}

// loadConfigFileContent reads the config file, refusing oversized files
func loadConfigFileContent(filePath string) ([]byte, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, common.NewValidationError("config_file", filePath, "path is a directory")
	}
	if info.Size() > maxConfigFileSize {
		return nil, common.NewValidationError("config_file", info.Size(), "config file too large")
	}
	return os.ReadFile(filePath)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		return parseYAMLConfig(data, filePath, cfg)
	}
	return parseJSONConfig(data, filePath, cfg)
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}

// parseYAMLConfig parses YAML configuration
func parseYAMLConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
	}
	return nil
}

// parseJSONConfig parses JSON configuration
func parseJSONConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
