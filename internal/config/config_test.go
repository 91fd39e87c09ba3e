package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFromMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.PropagateExit {
		t.Error("expected propagate_exit to default to true")
	}
	if cfg.Audit.Enabled {
		t.Error("expected audit to be disabled by default")
	}
	if cfg.Path() != "" {
		t.Errorf("expected no path for defaults, got %q", cfg.Path())
	}
}

func TestLoadFrom(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
propagate_exit: false
log_level: debug
env:
  LC_ALL: C
env_files:
  - build.env
  - /abs/other.env
audit:
  enabled: true
  path: /var/log/invoke.jsonl
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PropagateExit {
		t.Error("expected propagate_exit false")
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Level())
	}
	if diff := cmp.Diff(map[string]string{"LC_ALL": "C"}, cfg.Env); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
	wantFiles := []string{filepath.Join(dir, "build.env"), "/abs/other.env"}
	if diff := cmp.Diff(wantFiles, cfg.EnvFiles); diff != "" {
		t.Errorf("env_files mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/var/log/invoke.jsonl" {
		t.Errorf("unexpected audit config: %+v", cfg.Audit)
	}
	if cfg.Path() != path {
		t.Errorf("expected path %q, got %q", path, cfg.Path())
	}
}

func TestLoadFromExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("audit:\n  path: ~/runs.jsonl\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "runs.jsonl"); cfg.Audit.Path != want {
		t.Errorf("expected %q, got %q", want, cfg.Audit.Path)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":  "propagate_exit: [",
		"bad level": "log_level: loud\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadUsesEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("propagate_exit: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PropagateExit {
		t.Error("expected config from INVOKE_CONFIG to be used")
	}
}

func TestLevelEnvOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	cfg := DefaultConfig()
	if cfg.Level() != slog.LevelError {
		t.Errorf("expected error level, got %v", cfg.Level())
	}

	t.Setenv(EnvLogLevel, "nonsense")
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("expected fallback to warn, got %v", cfg.Level())
	}
}

func TestEnviron(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.env")
	b := filepath.Join(dir, "b.env")
	if err := os.WriteFile(a, []byte("FROM_FILE=a\nHOME=/from/file\nSHARED=a\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("# comment\nSHARED=\"b\"\nexport OTHER=x\n"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := Environ(
		[]string{"HOME=/home/me", "PATH=/bin", "malformed"},
		[]string{a, b},
		map[string]string{"PATH": "/usr/bin", "EXTRA": "1"},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"EXTRA=1",
		"FROM_FILE=a",
		"HOME=/home/me",
		"OTHER=x",
		"PATH=/usr/bin",
		"SHARED=b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("environ mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvironMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")
	_, err := Environ(nil, []string{missing}, nil)
	var fileErr *EnvFileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected *EnvFileError, got %v", err)
	}
	if fileErr.Path != missing {
		t.Errorf("expected path %q, got %q", missing, fileErr.Path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestNeedsEnv(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.NeedsEnv(nil) {
		t.Error("default config should inherit the environment")
	}
	if !cfg.NeedsEnv([]string{"x.env"}) {
		t.Error("extra env files should require a built environment")
	}
	cfg.Env = map[string]string{"A": "1"}
	if !cfg.NeedsEnv(nil) {
		t.Error("config env should require a built environment")
	}
}
