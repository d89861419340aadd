package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const maxOutputBytes = 64 * 1024 // 64KB

type OSHost struct{}

func NewOSHost() *OSHost {
	return &OSHost{}
}

func (h *OSHost) Launch(spec LaunchSpec) (int, error) {
	stdout, err := openLog(spec.Stdout)
	if err != nil {
		return 0, err
	}
	defer stdout.Close()
	stderr, err := openLog(spec.Stderr)
	if err != nil {
		return 0, err
	}
	defer stderr.Close()

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// New session so a Ctrl-C aimed at ybctl does not reach the daemons.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("launch %s: %w", spec.Path, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release %s (pid %d): %w", spec.Path, pid, err)
	}
	return pid, nil
}

func openLog(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return f, nil
}

// FindPID shells out to pgrep -f. Exit status 1 is "no match"; anything
// else non-zero is a probe failure.
func (h *OSHost) FindPID(ctx context.Context, pattern string) (int, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-f", pattern).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return 0, nil
		}
		return 0, fmt.Errorf("pgrep %q: %w", pattern, err)
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, fmt.Errorf("pgrep %q: unexpected output %q", pattern, string(out))
	}
	return pid, nil
}

func (h *OSHost) Terminate(pid int) error {
	err := syscall.Kill(pid, syscall.SIGTERM)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

func (h *OSHost) Run(ctx context.Context, opts RunOpts) (*RunResult, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	out, err := cmd.CombinedOutput()
	duration := time.Since(start)

	output := string(out)
	if len(output) > maxOutputBytes {
		output = output[:maxOutputBytes] + "\n... (output truncated at 64KB)"
	}

	result := &RunResult{
		Output:   output,
		Duration: duration,
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.ExitCode = -1
			if ctxErr == context.DeadlineExceeded {
				return result, fmt.Errorf("%s timed out after %s", opts.Command, timeout)
			}
			return result, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil // non-zero exit is not a runner error
		}
		return result, err
	}

	result.ExitCode = 0
	return result, nil
}
