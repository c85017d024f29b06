package command

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/policy"
)

const defaultTimeout = 30 * time.Second

// Runner executes Requests under a command allow/deny policy and an
// environment scrub, capturing output under a byte budget and killing the
// whole process tree on timeout.
type Runner struct {
	cmdPolicy  policy.CommandPolicy
	byteBudget int
}

// NewRunner returns a Runner that checks argv against cmdPolicy and caps
// each stream's captured output at budget bytes (defaultByteBudget if 0).
func NewRunner(cmdPolicy policy.CommandPolicy, budget int) *Runner {
	if budget <= 0 {
		budget = defaultByteBudget
	}
	return &Runner{cmdPolicy: cmdPolicy, byteBudget: budget}
}

// ErrTimeout is returned when the command's timeout elapses before it exits.
var ErrTimeout = fmt.Errorf("command: timed out")

// Run executes req and returns its captured output. req.Argv runs directly
// when it is set and req.Command is empty or contains no shell
// metacharacters; req.Command runs through "sh -c" when it contains a shell
// metacharacter or when req.Argv is unset. A Command without
// metacharacters is not split into argv on its own: with no Argv it still
// goes through the shell.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	argv, useShell, err := r.resolveArgv(req)
	if err != nil {
		return Result{}, err
	}
	if err := r.cmdPolicy.CheckCommand(policyTokens(req, argv, useShell)); err != nil {
		return Result{}, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if useShell {
		cmd = exec.CommandContext(runCtx, "sh", "-c", req.Command)
	} else {
		cmd = exec.CommandContext(runCtx, argv[0], argv[1:]...)
	}
	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	}
	cmd.Env = policy.ScrubEnv(req.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newCapBuffer(r.byteBudget)
	stderr := newCapBuffer(r.byteBudget)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	startErr := cmd.Start()
	if startErr != nil {
		return Result{}, fmt.Errorf("command: start: %w", startErr)
	}
	pid := cmd.Process.Pid

	waitErr := cmd.Wait()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		killProcessGroup(pid)
		return Result{
			PID:        pid,
			DurationMS: duration.Milliseconds(),
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
			Truncated:  stdout.Truncated() || stderr.Truncated(),
			TimedOut:   true,
		}, ErrTimeout
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, fmt.Errorf("command: wait: %w", waitErr)
		}
	}

	return Result{
		ExitCode:   exitCode,
		PID:        pid,
		DurationMS: duration.Milliseconds(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Truncated:  stdout.Truncated() || stderr.Truncated(),
	}, nil
}

func (r *Runner) resolveArgv(req Request) (argv []string, useShell bool, err error) {
	if req.Command != "" && (DetectShellMode(req.Command) || len(req.Argv) == 0) {
		return []string{"sh", "-c", req.Command}, true, nil
	}
	if len(req.Argv) > 0 {
		return req.Argv, false, nil
	}
	return nil, false, fmt.Errorf("command: no command or argv supplied")
}

// policyTokens returns the argv CheckCommand should reason about: the real
// argv in argv-mode, or the shell command line split into fields in
// shell-mode, so the deny list matches the actual program invoked rather
// than the "sh" wrapper around it.
func policyTokens(req Request, argv []string, useShell bool) []string {
	if !useShell {
		return argv
	}
	return strings.Fields(req.Command)
}

// killProcessGroup sends SIGKILL to the whole process group rooted at pid,
// so a timed-out command's children are reaped along with it.
func killProcessGroup(pid int) {
	syscall.Kill(-pid, syscall.SIGKILL)
}
