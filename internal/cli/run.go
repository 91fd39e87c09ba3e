package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/marcelocantos/invoke/internal/audit"
	"github.com/marcelocantos/invoke/internal/config"
	"github.com/marcelocantos/invoke/internal/pipeline"
)

// Exit codes for launcher failures. A finished last stage reports its own
// status instead.
const (
	ExitFailure    = 1
	ExitUsage      = 2
	ExitCannotExec = 126
	ExitNotFound   = 127
)

// RunPipeline launches spec, waits for its last stage and returns the exit
// code invoke should terminate with.
func RunPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, spec *pipeline.Spec, stdio IO) int {
	opts := pipeline.Options{
		Stdin:  stdio.In,
		Stdout: stdio.Out,
		Stderr: stdio.Err,
		Logger: logger,
	}

	start := time.Now()
	err := buildEnv(cfg, spec, &opts)
	if err == nil {
		logger.Debug("launching pipeline", "stages", len(spec.Stages), "stdout", spec.Stdout, "stdin", spec.Stdin)
		err = pipeline.Run(ctx, spec, opts)
	}
	duration := time.Since(start)

	code := resolveError(stdio.Err, err, cfg.PropagateExit)
	logger.Debug("pipeline finished", "exit_code", code, "duration", duration)

	if cfg.Audit.Enabled {
		logRun(logger, cfg.Audit.Path, spec, code, err, duration)
	}
	return code
}

// buildEnv sets opts.Env when config or --env-file change the stage
// environment; otherwise stages inherit it.
func buildEnv(cfg *config.Config, spec *pipeline.Spec, opts *pipeline.Options) error {
	if !cfg.NeedsEnv(spec.EnvFiles) {
		return nil
	}
	files := append(append([]string(nil), cfg.EnvFiles...), spec.EnvFiles...)
	env, err := config.Environ(os.Environ(), files, cfg.Env)
	if err != nil {
		var fileErr *config.EnvFileError
		if errors.As(err, &fileErr) {
			return &pipeline.IOError{Op: "env-file", Path: fileErr.Path, Err: fileErr.Err}
		}
		return err
	}
	opts.Env = env
	return nil
}

// resolveError maps err to an exit code. A non-zero last stage is
// propagated silently (its own stderr is sufficient); launcher failures
// are reported on w.
func resolveError(w io.Writer, err error, propagate bool) int {
	if err == nil {
		return 0
	}

	var exitErr *pipeline.ExitError
	if errors.As(err, &exitErr) {
		if propagate {
			return exitErr.Code
		}
		return 0
	}

	fmt.Fprintf(w, "invoke: %v\n", err)

	var cfgErr *pipeline.ConfigError
	var launchErr *pipeline.LaunchError
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintln(w, "run 'invoke --help' for usage")
		return ExitUsage
	case errors.As(err, &launchErr):
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return ExitNotFound
		}
		if errors.Is(err, fs.ErrPermission) {
			return ExitCannotExec
		}
	}
	return ExitFailure
}

func logRun(logger *slog.Logger, path string, spec *pipeline.Spec, code int, err error, duration time.Duration) {
	l, lerr := audit.NewLogger(path)
	if lerr != nil {
		logger.Warn("run log unavailable", "path", path, "err", lerr)
		return
	}

	stages := make([][]string, len(spec.Stages))
	for i, c := range spec.Stages {
		stages[i] = c.Expand()
	}
	cwd, _ := os.Getwd()

	var exitErr *pipeline.ExitError
	if errors.As(err, &exitErr) {
		// Recorded as the exit code, not as a launcher error.
		code = exitErr.Code
		err = nil
	}

	// The run log never fails the run.
	if lerr := l.Log(audit.Record{
		Stages:   stages,
		Stdin:    spec.Stdin,
		Stdout:   spec.Stdout,
		ExitCode: code,
		Err:      err,
		Duration: duration,
		Cwd:      cwd,
	}); lerr != nil {
		logger.Warn("run log write failed", "path", path, "err", lerr)
	}
}
