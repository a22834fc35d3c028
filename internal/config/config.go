// Package config loads walletguard.yaml. Missing file returns the
// built-in defaults; the YAML only overrides the fields it names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Queue configures the request queue lifecycle.
type Queue struct {
	TimeoutSeconds    int `yaml:"timeout_seconds"`
	PruneGraceSeconds int `yaml:"prune_grace_seconds"`
}

// Permissions configures permission-store maintenance.
type Permissions struct {
	AutoRevokeAfterDays int `yaml:"auto_revoke_after_days"`
	MaxConnectedSites   int `yaml:"max_connected_sites"`
}

// Decode configures the decoder.
type Decode struct {
	CacheCapacity int    `yaml:"cache_capacity"`
	ContractsFile string `yaml:"contracts_file"`
}

// RateLimit bounds per-origin request throughput at the bridge. Zero
// values disable limiting.
type RateLimit struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Config holds all walletguard settings.
type Config struct {
	ListenAddr   string      `yaml:"listen_addr"`
	DBPath       string      `yaml:"db_path"`
	ChainsFile   string      `yaml:"chains_file"`
	AuditLog     string      `yaml:"audit_log"`
	DenylistFile string      `yaml:"denylist_file"`
	Queue        Queue       `yaml:"queue"`
	Permissions  Permissions `yaml:"permissions"`
	RateLimit    RateLimit   `yaml:"rate_limit"`
	Decode       Decode      `yaml:"decode"`
}

// DefaultConfig returns the built-in settings. Paths live under
// ~/.walletguard; a missing home directory falls back to the working
// directory.
func DefaultConfig() *Config {
	base := ".walletguard"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".walletguard")
	}
	return &Config{
		ListenAddr:   "127.0.0.1:8755",
		DBPath:       filepath.Join(base, "state.db"),
		ChainsFile:   filepath.Join(base, "chains.yaml"),
		AuditLog:     filepath.Join(base, "audit.jsonl"),
		DenylistFile: filepath.Join(base, "denylist.yaml"),
		RateLimit: RateLimit{
			MaxRequests:   120,
			WindowSeconds: 60,
		},
		Queue: Queue{
			TimeoutSeconds:    300,
			PruneGraceSeconds: 30,
		},
		Permissions: Permissions{
			AutoRevokeAfterDays: 30,
			MaxConnectedSites:   50,
		},
		Decode: Decode{
			CacheCapacity: 256,
		},
	}
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.walletguard/walletguard.yaml. Missing file returns defaults.
// Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = filepath.Join(home, ".walletguard", "walletguard.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// QueueTimeout returns the request timeout as a duration.
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.Queue.TimeoutSeconds) * time.Second
}

// PruneGrace returns the terminal-record retention as a duration.
func (c *Config) PruneGrace() time.Duration {
	return time.Duration(c.Queue.PruneGraceSeconds) * time.Second
}

// RateLimitWindow returns the per-origin limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// DefaultYAML renders the built-in settings as a commented YAML file,
// for `walletguard init` scaffolding.
func DefaultYAML() (string, error) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}
	header := "# walletguard configuration\n" +
		"# Every field is optional; missing fields keep their defaults.\n"
	return header + string(data), nil
}
