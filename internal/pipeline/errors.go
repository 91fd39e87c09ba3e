package pipeline

import (
	"fmt"
	"strings"
)

// ConfigError reports malformed or missing pipeline arguments. It is always
// returned before any process is started.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// IOError reports a redirect file that could not be opened.
type IOError struct {
	Op   string // "stdout" or "stdin" or "env-file"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// LaunchError reports a stage whose program could not be started.
type LaunchError struct {
	Stage int
	Argv  Command
	Err   error
}

func (e *LaunchError) Error() string {
	name := ""
	if len(e.Argv) > 0 {
		name = e.Argv[0]
	}
	return fmt.Sprintf("stage %d (%s): %v", e.Stage, name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitError represents a last stage that exited with a non-zero status.
// It is not a launcher failure; it carries the code so callers can
// propagate it.
type ExitError struct {
	Code int
	Argv Command
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", strings.Join(e.Argv, " "), e.Code)
}
