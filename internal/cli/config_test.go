package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing-on-purpose.yaml"), nil)
	if err == nil {
		t.Fatal("explicit missing config file should error")
	}

	cfg, err = LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BackendURL != DefaultBackendURL {
		t.Errorf("expected default backend url, got %q", cfg.BackendURL)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
	if !cfg.Watch {
		t.Error("watch should default to true")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumagraph.yaml")
	content := "backend-url: http://backend:9000\nport: 5000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BackendURL != "http://backend:9000" {
		t.Errorf("file value not applied: %q", cfg.BackendURL)
	}
	if cfg.Port != 5000 {
		t.Errorf("file value not applied: %d", cfg.Port)
	}
	// Untouched keys keep their defaults.
	if cfg.WorkspaceDir != DefaultWorkspaceDir {
		t.Errorf("expected default workspace dir, got %q", cfg.WorkspaceDir)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumagraph.yaml")
	if err := os.WriteFile(path, []byte("backend-url: http://from-file:9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LUMAGRAPH_BACKEND_URL", "http://from-env:9000")

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BackendURL != "http://from-env:9000" {
		t.Errorf("env should beat file: %q", cfg.BackendURL)
	}
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LUMAGRAPH_PORT", "5000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	if err := flags.Set("port", "6000"); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig("", flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != 6000 {
		t.Errorf("flag should beat env: %d", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	good := &Config{BackendURL: "http://x", WorkspaceDir: "w", Port: 4400}
	if err := good.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := []*Config{
		{WorkspaceDir: "w", Port: 4400},
		{BackendURL: "http://x", Port: 4400},
		{BackendURL: "http://x", WorkspaceDir: "w", Port: 0},
		{BackendURL: "http://x", WorkspaceDir: "w", Port: 70000},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
