package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestLoadParsesYAMLAndOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := []byte("data_dir: /var/lib/warren\npass_interval: 30s\nhttp_addr: \":9090\"\n")
	if err := os.WriteFile(path, contents, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/warren" {
		t.Errorf("data_dir = %q, want /var/lib/warren", cfg.DataDir)
	}
	if time.Duration(cfg.PassInterval) != 30*time.Second {
		t.Errorf("pass_interval = %v, want 30s", time.Duration(cfg.PassInterval))
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("http_addr = %q, want :9090", cfg.HTTPAddr)
	}
	// GRPCAddr was not overridden, should keep the default.
	if cfg.GRPCAddr != Default().GRPCAddr {
		t.Errorf("grpc_addr = %q, want default %q", cfg.GRPCAddr, Default().GRPCAddr)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("pass_interval: not-a-duration\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an invalid duration string")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
