package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config
// file location.
const EnvConfigPath = "INVOKE_CONFIG"

// EnvLogLevel names the environment variable that overrides log_level.
const EnvLogLevel = "INVOKE_LOG_LEVEL"

// Config holds the global invoke configuration.
type Config struct {
	// PropagateExit makes the launcher exit with the last stage's status.
	// When false the launcher exits 0 once the last stage has finished.
	PropagateExit bool              `yaml:"propagate_exit"`
	LogLevel      string            `yaml:"log_level"`
	Env           map[string]string `yaml:"env"`
	EnvFiles      []string          `yaml:"env_files"`
	Audit         AuditConfig       `yaml:"audit"`

	path string
}

// AuditConfig controls the run log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		PropagateExit: true,
		LogLevel:      "warn",
		Audit: AuditConfig{
			Path: filepath.Join(home, ".local", "share", "invoke", "runs.jsonl"),
		},
	}
}

// Load reads the config from $INVOKE_CONFIG, or from the standard location
// (~/.config/invoke/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFrom(path)
	}
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.path = path

	cfg.Audit.Path = expandHome(cfg.Audit.Path)

	// Relative env files are resolved against the config file's directory.
	dir := filepath.Dir(path)
	for i, f := range cfg.EnvFiles {
		f = expandHome(f)
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		cfg.EnvFiles[i] = f
	}

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Level returns the effective log level. $INVOKE_LOG_LEVEL wins over the
// config file; unparseable values fall back to warn.
func (c *Config) Level() slog.Level {
	s := c.LogLevel
	if env := os.Getenv(EnvLogLevel); env != "" {
		s = env
	}
	lvl, err := ParseLevel(s)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// ParseLevel converts a level name to a slog.Level. An empty name is warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "invoke", "config.yaml")
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, p[1:])
}
