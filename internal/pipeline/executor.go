package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// Options controls the environment stages run in. Zero values inherit from
// the launching process.
//
// Files are handed to the stages directly. Any other Stderr is fed from a
// single pipe shared by every stage, and Wait returns only once all stages
// have closed it. Any other Stdin is copied into the first stage until EOF
// or until that stage exits.
type Options struct {
	Stdin  io.Reader // first stage's input unless Spec.Stdin is set
	Stdout io.Writer // last stage's output unless Spec.Stdout is set
	Stderr io.Writer // shared by every stage
	Env    []string  // nil inherits the launcher's environment
	Dir    string
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Stage is a started process in a pipeline.
type Stage struct {
	Index int
	Argv  Command // tokens after %OPT% expansion
	cmd   *exec.Cmd
}

// Pid returns the OS process id of the stage.
func (s *Stage) Pid() int {
	return s.cmd.Process.Pid
}

// Execution is a fully launched pipeline.
type Execution struct {
	Stages []*Stage
	stderr *stderrCopier
}

// Last returns the final stage, the only one Wait blocks on.
func (x *Execution) Last() *Stage {
	return x.Stages[len(x.Stages)-1]
}

// Wait blocks until the last stage exits. Earlier stages never hold it up
// and their exit status is not inspected. A non-zero exit of the last stage
// is returned as *ExitError.
func (x *Execution) Wait() error {
	last := x.Last()
	err := last.cmd.Wait()
	if x.stderr != nil {
		x.stderr.wait()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitCode(exitErr.ProcessState), Argv: last.Argv}
	}
	return err
}

// exitCode follows the shell convention of 128+N for a process killed by
// signal N.
func exitCode(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ps.ExitCode()
}

// Run launches the pipeline and waits for its last stage.
func Run(ctx context.Context, s *Spec, opts Options) error {
	x, err := Launch(ctx, s, opts)
	if err != nil {
		return err
	}
	return x.Wait()
}

// Launch starts every stage of s in order, wiring each stage's stdout to the
// next stage's stdin through an OS pipe. Redirect files are opened before
// the first stage starts. If a stage cannot be started, Launch returns a
// *LaunchError and leaves already started stages running; nothing is
// written to a non-file Stderr after Launch returns.
//
// The launcher's copy of every pipe end and redirect file is closed once the
// stage owning it has started, so each end has exactly one holder.
func Launch(ctx context.Context, s *Spec, opts Options) (*Execution, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	stdin := opts.Stdin
	if s.Stdin != "" {
		f, err := os.Open(s.Stdin)
		if err != nil {
			return nil, &IOError{Op: "stdin", Path: s.Stdin, Err: err}
		}
		defer f.Close()
		stdin = f
	}

	stdout := opts.Stdout
	if s.Stdout != "" {
		f, err := os.Create(s.Stdout)
		if err != nil {
			return nil, &IOError{Op: "stdout", Path: s.Stdout, Err: err}
		}
		defer f.Close()
		stdout = f
	}

	x := &Execution{Stages: make([]*Stage, 0, len(s.Stages))}

	stderr := opts.Stderr
	if _, ok := stderr.(*os.File); !ok {
		c, err := newStderrCopier(stderr)
		if err != nil {
			return nil, fmt.Errorf("create stderr pipe: %w", err)
		}
		x.stderr = c
		stderr = c.w
	}

	// Read end of the previous stage's pipe, owned here until the next
	// stage has started.
	var prev *os.File
	launched := false
	defer func() {
		if prev != nil {
			prev.Close()
		}
		if x.stderr != nil {
			if launched {
				x.stderr.release()
			} else {
				x.stderr.abort()
			}
		}
	}()

	last := len(s.Stages) - 1

	for i, c := range s.Stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}

		argv := c.Expand()
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Env = opts.Env
		cmd.Dir = opts.Dir
		cmd.Stderr = stderr
		if i == 0 {
			cmd.Stdin = stdin
		} else {
			cmd.Stdin = prev
		}

		var r, w *os.File
		if i == last {
			cmd.Stdout = stdout
		} else {
			var err error
			if r, w, err = os.Pipe(); err != nil {
				return nil, fmt.Errorf("stage %d: create pipe: %w", i, err)
			}
			cmd.Stdout = w
		}

		err := cmd.Start()
		if w != nil {
			w.Close()
		}
		if prev != nil {
			prev.Close()
		}
		prev = r
		if err != nil {
			return nil, &LaunchError{Stage: i, Argv: argv, Err: err}
		}

		opts.Logger.Debug("stage started", "stage", i, "argv", []string(argv), "pid", cmd.Process.Pid)
		x.Stages = append(x.Stages, &Stage{Index: i, Argv: argv, cmd: cmd})
		if i < last {
			// Reaped in the background so the process handle is released;
			// the exit status is never inspected.
			go cmd.Wait()
		}
	}

	launched = true
	return x, nil
}

// stderrCopier is the single writer to a non-file Stderr. Every stage gets
// a copy of w; the goroutine drains r until all copies are closed.
type stderrCopier struct {
	r, w *os.File
	done chan struct{}
}

func newStderrCopier(dst io.Writer) (*stderrCopier, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	c := &stderrCopier{r: r, w: w, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		io.Copy(dst, r)
	}()
	return c, nil
}

// release drops the launcher's write end once every stage holds its own.
func (c *stderrCopier) release() {
	c.w.Close()
}

// wait blocks until every stage has closed stderr and the copy is done.
func (c *stderrCopier) wait() {
	<-c.done
	c.r.Close()
}

// abort stops the copy after a failed launch. Stages already running see a
// closed pipe on their next write to stderr.
func (c *stderrCopier) abort() {
	c.w.Close()
	c.r.Close()
	<-c.done
}
