// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Triage   TriageConfig   `yaml:"triage"`
	Cache    CacheConfig    `yaml:"cache"`
	CORS     CORSConfig     `yaml:"cors"`
	LogLevel string         `yaml:"log_level"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Type         string `yaml:"type"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	LogSQL       bool   `yaml:"log_sql"`
}

// AuthConfig configures identity extraction.
type AuthConfig struct {
	// Mode is "headers" (trusted proxy headers) or "jwt".
	Mode string `yaml:"mode"`
	// PublicKeyPath enables RS256 signature verification in jwt mode.
	// Empty means trusted-proxy mode: claims are read without verification.
	PublicKeyPath string `yaml:"public_key_path"`
	UserClaim     string `yaml:"user_claim"`
	RolesClaim    string `yaml:"roles_claim"`
}

// TriageConfig points at the triage rule tables.
type TriageConfig struct {
	RulesPath        string `yaml:"rules_path"`
	RootCauseMapPath string `yaml:"root_cause_map_path"`
}

// CacheConfig controls the response cache on the risk report endpoints.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
	MaxEntries int  `yaml:"max_entries"`
}

// CORSConfig configures cross-origin access for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads the configuration from a YAML file. A missing file returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the default configuration: sqlite in-process storage and
// trusted-proxy header auth.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "grc-registry.db",
		},
		Auth: AuthConfig{
			Mode: "headers",
		},
		Triage: TriageConfig{
			RulesPath:        "config/triage_rules.yaml",
			RootCauseMapPath: "config/root_cause_map.yaml",
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 30,
			MaxEntries: 256,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		LogLevel: "info",
	}
}
