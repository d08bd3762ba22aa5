package worker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Spec carries the invocation parameters for one worker run.
type Spec struct {
	SessionID     string
	Topic         string
	MaxIterations int
	// CallbackURL is this service's own base URL; the worker writes its
	// structured progress back through it.
	CallbackURL string
}

// Process is a handle to a launched worker.
type Process interface {
	// Signal sends a termination signal. Best-effort; the caller does not
	// wait for the worker to acknowledge.
	Signal(sig os.Signal) error
	// Wait blocks until the worker exits and returns its exit code.
	Wait() (int, error)
}

// Launcher starts a worker process for the given spec, wiring its stdout and
// stderr to the given writers. Tests substitute fakes for the exec-backed
// default.
type Launcher func(spec Spec, stdout, stderr io.Writer) (Process, error)

// Command configures the exec-backed launcher.
type Command struct {
	// Path is the worker executable, e.g. "python3".
	Path string
	// Args precede the per-session flags, e.g. ["main.py"].
	Args []string
	// Dir is the working directory for the worker.
	Dir string
	// Env overrides the inherited environment when non-nil.
	Env []string
}

// Launch starts the external worker with the session's invocation contract:
// topic, session id, iteration bound, and callback URL as flags, plus the
// callback URL in the environment.
func (c Command) Launch(spec Spec, stdout, stderr io.Writer) (Process, error) {
	if strings.TrimSpace(c.Path) == "" {
		return nil, fmt.Errorf("worker command is required")
	}
	args := append([]string{}, c.Args...)
	args = append(args,
		"--topic", spec.Topic,
		"--debate-id", spec.SessionID,
		"--max-iterations", strconv.Itoa(spec.MaxIterations),
		"--api-url", spec.CallbackURL,
	)

	cmd := exec.Command(c.Path, args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, "DEBATE_API_URL="+spec.CallbackURL)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Wait() (int, error) {
	if err := p.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}
