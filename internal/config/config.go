package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Upload      UploadConfig      `yaml:"upload"`
	Scratch     ScratchConfig     `yaml:"scratch"`
	Backends    BackendsConfig    `yaml:"backends"`
	Degradation DegradationConfig `yaml:"degradation"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	App         AppConfig         `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UploadConfig bounds inbound file size
type UploadConfig struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// MaxSizeBytes returns the upload bound in bytes.
func (u UploadConfig) MaxSizeBytes() int64 {
	return u.MaxSizeMB * 1024 * 1024
}

// ScratchConfig holds temporary-file settings
type ScratchConfig struct {
	Dir           string        `yaml:"dir"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Retention     time.Duration `yaml:"retention"`
}

// BackendsConfig holds per-backend tuning
type BackendsConfig struct {
	Image    ImageBackendConfig    `yaml:"image"`
	Media    MediaBackendConfig    `yaml:"media"`
	Document DocumentBackendConfig `yaml:"document"`
}

// ImageBackendConfig holds the in-process encoder profile
type ImageBackendConfig struct {
	Workers     int `yaml:"workers"`
	JPEGQuality int `yaml:"jpeg_quality"`
	WebPQuality int `yaml:"webp_quality"`
}

// MediaBackendConfig holds ffmpeg invocation settings
type MediaBackendConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DocumentBackendConfig holds office-conversion settings
type DocumentBackendConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DegradationConfig controls the placeholder fallback. Off by default:
// a note file masquerading as a converted artifact must be opted into.
type DegradationConfig struct {
	PlaceholderEnabled bool `yaml:"placeholder_enabled"`
}

// DatabaseConfig holds the embedded SQLite settings
type DatabaseConfig struct {
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("upload max_size_mb must be greater than 0")
	}

	if c.Scratch.Dir == "" {
		return fmt.Errorf("scratch dir is required")
	}

	if c.Scratch.SweepInterval > 0 && c.Scratch.Retention <= 0 {
		return fmt.Errorf("scratch retention must be greater than 0 when sweeping is enabled")
	}

	if c.Backends.Image.Workers < 0 {
		return fmt.Errorf("image workers must not be negative")
	}

	if q := c.Backends.Image.JPEGQuality; q < 0 || q > 100 {
		return fmt.Errorf("invalid jpeg_quality: %d (must be between 0 and 100)", q)
	}

	if q := c.Backends.Image.WebPQuality; q < 0 || q > 100 {
		return fmt.Errorf("invalid webp_quality: %d (must be between 0 and 100)", q)
	}

	if c.Backends.Document.Timeout < 0 {
		return fmt.Errorf("document timeout must not be negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	return nil
}
