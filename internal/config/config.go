// Package config provides configuration loading and structs for the Tadoru server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Resolve ResolveConfig `yaml:"resolve"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the artifact database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ResolveConfig holds resolution coordinator settings.
type ResolveConfig struct {
	// GroupTimeoutMs bounds each per-connector resolver group.
	GroupTimeoutMs int `yaml:"group_timeout_ms"`
	// TotalTimeoutMs bounds the whole resolution call.
	TotalTimeoutMs int `yaml:"total_timeout_ms"`
	// SlackWindowSeconds bounds the time window searched around a Slack
	// message timestamp.
	SlackWindowSeconds int `yaml:"slack_window_seconds"`
	// MaxMarkers caps how many markers a single request resolves.
	MaxMarkers int `yaml:"max_markers"`
}

// GroupTimeout returns the per-group timeout as a duration.
func (r *ResolveConfig) GroupTimeout() time.Duration {
	return time.Duration(r.GroupTimeoutMs) * time.Millisecond
}

// TotalTimeout returns the whole-call timeout as a duration.
func (r *ResolveConfig) TotalTimeout() time.Duration {
	return time.Duration(r.TotalTimeoutMs) * time.Millisecond
}

// SlackWindow returns the Slack lookup window as a duration.
func (r *ResolveConfig) SlackWindow() time.Duration {
	return time.Duration(r.SlackWindowSeconds) * time.Second
}

// IngestConfig holds ingest spool settings.
type IngestConfig struct {
	// SpoolDir is watched for artifact bundle files; empty disables the spool.
	SpoolDir string `yaml:"spool_dir"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Ingest.SpoolDir != "" {
		cfg.Ingest.SpoolDir = expandPath(cfg.Ingest.SpoolDir, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
