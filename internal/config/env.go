package config

import (
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileError reports a dotenv file that could not be read or parsed.
type EnvFileError struct {
	Path string
	Err  error
}

func (e *EnvFileError) Error() string {
	return "env-file " + e.Path + ": " + e.Err.Error()
}

func (e *EnvFileError) Unwrap() error { return e.Err }

// Environ builds the environment for pipeline stages.
//
// Variables from dotenv files only fill in names missing from base (later
// files win over earlier ones). Entries in extra override everything. The
// result is sorted by name.
func Environ(base []string, files []string, extra map[string]string) ([]string, error) {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}

	fromFiles := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			return nil, &EnvFileError{Path: f, Err: err}
		}
		for k, v := range m {
			fromFiles[k] = v
		}
	}
	for k, v := range fromFiles {
		if _, ok := env[k]; !ok {
			env[k] = v
		}
	}

	for k, v := range extra {
		env[k] = v
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out, nil
}

// NeedsEnv reports whether the stage environment differs from the launcher's
// own, so callers can leave it inherited otherwise.
func (c *Config) NeedsEnv(extraFiles []string) bool {
	return len(c.Env) > 0 || len(c.EnvFiles) > 0 || len(extraFiles) > 0
}
