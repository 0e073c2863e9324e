package config

import (
	"strings"
	"time"

	"github.com/aleister1102/imgsync/internal/models"
)

// SFTPConfig defines the remote host the watched directory is mirrored to
type SFTPConfig struct {
	Host                     string `json:"host" yaml:"host" validate:"required"`
	Port                     int    `json:"port,omitempty" yaml:"port,omitempty" validate:"min=1,max=65535"`
	Username                 string `json:"username" yaml:"username" validate:"required"`
	Password                 string `json:"password,omitempty" yaml:"password,omitempty" validate:"required_without=PrivateKeyFile"`
	PrivateKeyFile           string `json:"private_key_file,omitempty" yaml:"private_key_file,omitempty" validate:"required_without=Password,fileexists"`
	PrivateKeyPassphrase     string `json:"private_key_passphrase,omitempty" yaml:"private_key_passphrase,omitempty"`
	KnownHostsFile           string `json:"known_hosts_file,omitempty" yaml:"known_hosts_file,omitempty" validate:"fileexists"`
	LocalPath                string `json:"local_path" yaml:"local_path" validate:"required,direxists"`
	RemotePath               string `json:"remote_path" yaml:"remote_path" validate:"required"`
	KeepaliveSeconds         int    `json:"keepalive_seconds,omitempty" yaml:"keepalive_seconds,omitempty" validate:"min=0"`
	IdleTimeoutSeconds       int    `json:"idle_timeout_seconds,omitempty" yaml:"idle_timeout_seconds,omitempty" validate:"min=1"`
	ConnectAttempts          int    `json:"connect_attempts,omitempty" yaml:"connect_attempts,omitempty" validate:"min=1"`
	ConnectRetryDelaySeconds int    `json:"connect_retry_delay_seconds,omitempty" yaml:"connect_retry_delay_seconds,omitempty" validate:"min=0"`
	DialTimeoutSeconds       int    `json:"dial_timeout_seconds,omitempty" yaml:"dial_timeout_seconds,omitempty" validate:"min=1"`
}

// NewDefaultSFTPConfig creates default SFTP configuration
func NewDefaultSFTPConfig() SFTPConfig {
	return SFTPConfig{
		Port:                     DefaultSFTPPort,
		KeepaliveSeconds:         DefaultSFTPKeepaliveSeconds,
		IdleTimeoutSeconds:       DefaultSFTPIdleTimeoutSeconds,
		ConnectAttempts:          DefaultSFTPConnectAttempts,
		ConnectRetryDelaySeconds: DefaultSFTPConnectRetryDelaySeconds,
		DialTimeoutSeconds:       DefaultSFTPDialTimeoutSeconds,
	}
}

// Descriptor builds the immutable connection descriptor
func (c SFTPConfig) Descriptor() models.ConnectionDescriptor {
	return models.ConnectionDescriptor{
		Host:                 c.Host,
		Port:                 c.Port,
		Username:             c.Username,
		Password:             c.Password,
		PrivateKeyFile:       c.PrivateKeyFile,
		PrivateKeyPassphrase: c.PrivateKeyPassphrase,
		KnownHostsFile:       c.KnownHostsFile,
	}
}

func (c SFTPConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c SFTPConfig) ConnectRetryDelay() time.Duration {
	return time.Duration(c.ConnectRetryDelaySeconds) * time.Second
}

func (c SFTPConfig) Keepalive() time.Duration {
	return time.Duration(c.KeepaliveSeconds) * time.Second
}

func (c SFTPConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

// normalize collapses doubled backslashes in the local path and trims the
// trailing slash from the remote path ("/" stays as is).
func (c *SFTPConfig) normalize() {
	c.LocalPath = strings.ReplaceAll(c.LocalPath, `\\`, `\`)
	if len(c.RemotePath) > 1 {
		c.RemotePath = strings.TrimRight(c.RemotePath, "/")
		if c.RemotePath == "" {
			c.RemotePath = "/"
		}
	}
}
