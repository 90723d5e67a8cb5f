// Package config loads service configuration from an optional YAML file
// with environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the capture coordinator process.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`

	// StagingDir is the root for archive staging; empty uses the system
	// temp directory.
	StagingDir string `yaml:"staging_dir"`

	// UploadRatePerMinute caps upload requests per client IP. Zero uses
	// the default.
	UploadRatePerMinute int `yaml:"upload_rate_per_minute"`
}

// DatabaseConfig holds ledger database settings.
type DatabaseConfig struct {
	URL       string        `yaml:"url"`
	MaxConns  int32         `yaml:"max_conns"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// StorageConfig holds object-store settings.
type StorageConfig struct {
	Region    string        `yaml:"region"`
	Bucket    string        `yaml:"bucket"`
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultAddr                = ":8080"
	DefaultRegion              = "us-east-1"
	DefaultOpTimeout           = 5 * time.Second
	DefaultUploadRatePerMinute = 600
)

// Load reads the optional YAML file at path (empty path skips the file),
// applies environment overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Addr, "HTTP_ADDR")
	setFromEnv(&c.Database.URL, "DATABASE_URL")
	setFromEnv(&c.Storage.Region, "S3_REGION")
	setFromEnv(&c.Storage.Bucket, "S3_BUCKET")
	setFromEnv(&c.Storage.Endpoint, "S3_ENDPOINT")
	setFromEnv(&c.Storage.AccessKey, "S3_ACCESS_KEY")
	setFromEnv(&c.Storage.SecretKey, "S3_SECRET_KEY")
	setFromEnv(&c.StagingDir, "STAGING_DIR")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Storage.Region == "" {
		c.Storage.Region = DefaultRegion
	}
	if c.Database.OpTimeout <= 0 {
		c.Database.OpTimeout = DefaultOpTimeout
	}
	if c.Storage.OpTimeout <= 0 {
		c.Storage.OpTimeout = DefaultOpTimeout
	}
	if c.UploadRatePerMinute <= 0 {
		c.UploadRatePerMinute = DefaultUploadRatePerMinute
	}
}

// Validate reports every missing required setting by name. Secret values
// are never included in the message.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "database.url (DATABASE_URL)")
	}
	if c.Storage.Bucket == "" {
		missing = append(missing, "storage.bucket (S3_BUCKET)")
	}
	if len(missing) == 0 {
		return nil
	}
	msgs := make([]error, 0, len(missing))
	for _, m := range missing {
		msgs = append(msgs, fmt.Errorf("required setting not configured: %s", m))
	}
	return errors.Join(msgs...)
}
