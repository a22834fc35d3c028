package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8755" {
		t.Errorf("listen addr = %s", cfg.ListenAddr)
	}
	if cfg.QueueTimeout() != 5*time.Minute {
		t.Errorf("queue timeout = %s", cfg.QueueTimeout())
	}
}

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletguard.yaml")
	content := `listen_addr: "127.0.0.1:9000"
queue:
  timeout_seconds: 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("listen addr = %s", cfg.ListenAddr)
	}
	if cfg.QueueTimeout() != time.Minute {
		t.Errorf("queue timeout = %s", cfg.QueueTimeout())
	}
	// Unnamed fields keep their defaults.
	if cfg.Permissions.MaxConnectedSites != 50 {
		t.Errorf("max connected sites = %d", cfg.Permissions.MaxConnectedSites)
	}
	if cfg.Queue.PruneGraceSeconds != 30 {
		t.Errorf("prune grace = %d", cfg.Queue.PruneGraceSeconds)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletguard.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
