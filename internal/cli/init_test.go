package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInitCreatesConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	configDir := filepath.Join(tmpDir, ".walletguard")

	data, err := os.ReadFile(filepath.Join(configDir, "walletguard.yaml"))
	if err != nil {
		t.Fatalf("walletguard.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "listen_addr") {
		t.Error("walletguard.yaml missing listen_addr")
	}

	data, err = os.ReadFile(filepath.Join(configDir, "denylist.yaml"))
	if err != nil {
		t.Fatalf("denylist.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "origins:") {
		t.Error("denylist.yaml missing origins section")
	}
}

func TestRunInitNoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ".walletguard")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	sentinel := "# sentinel content\n"
	cfgPath := filepath.Join(configDir, "walletguard.yaml")
	if err := os.WriteFile(cfgPath, []byte(sentinel), 0o600); err != nil {
		t.Fatal(err)
	}

	initForce = false
	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(cfgPath)
	if string(data) != sentinel {
		t.Error("walletguard.yaml was overwritten without --force")
	}
}

func TestRunInitForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ".walletguard")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	sentinel := "# sentinel content\n"
	cfgPath := filepath.Join(configDir, "walletguard.yaml")
	if err := os.WriteFile(cfgPath, []byte(sentinel), 0o600); err != nil {
		t.Fatal(err)
	}

	initForce = true
	defer func() { initForce = false }()
	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(cfgPath)
	if string(data) == sentinel {
		t.Error("walletguard.yaml was NOT overwritten with --force")
	}
}

func TestWriteIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	initForce = false
	wrote, err := writeIfMissing(path, "hello")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !wrote {
		t.Error("first write should return true")
	}

	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if wrote {
		t.Error("second write should return false without force")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content changed without force: %q", string(data))
	}

	initForce = true
	defer func() { initForce = false }()
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("force write failed: %v", err)
	}
	if !wrote {
		t.Error("force write should return true")
	}
	data, _ = os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("force write did not overwrite: %q", string(data))
	}
}

func TestDefaultDenylistYAML(t *testing.T) {
	content, err := defaultDenylistYAML()
	if err != nil {
		t.Fatalf("defaultDenylistYAML failed: %v", err)
	}
	if !strings.HasPrefix(content, "# walletguard denylist") {
		t.Error("missing header comment")
	}
	for _, section := range []string{"origins:", "addresses:"} {
		if !strings.Contains(content, section) {
			t.Errorf("missing section %q", section)
		}
	}
}
