// Package config loads mml2midi settings from an optional YAML file
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the CLI, the TUI and the API server
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Convert ConvertConfig `yaml:"convert"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the REST API
type ServerConfig struct {
	Port int `yaml:"port"`
	// MaxUploadBytes limits uploaded files
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// ConvertConfig configures conversions
type ConvertConfig struct {
	// PadTracks fills every written MML track with rests up to the score
	// length
	PadTracks bool `yaml:"pad_tracks"`
}

// LogConfig configures logging
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Timestamp bool   `yaml:"timestamp"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			MaxUploadBytes: 8 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server max_upload_bytes must be positive")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := formatter(c.Log.Format); err != nil {
		return err
	}
	return nil
}

func formatter(name string) (log.Formatter, error) {
	switch name {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("unknown log format %q", name)
}

// NewLogger builds a logger writing to w with the configured level and format
func (c *Config) NewLogger(w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	f, err := formatter(c.Log.Format)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       f,
		ReportTimestamp: c.Log.Timestamp,
	}), nil
}

// Save writes the settings as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
