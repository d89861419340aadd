package runtime

import (
	"context"
	"time"
)

// LaunchSpec describes one detached server process.
type LaunchSpec struct {
	Path   string
	Args   []string
	Stdout string // file path, appended to
	Stderr string
}

type RunResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

type RunOpts struct {
	Command string
	Args    []string
	Timeout time.Duration // zero means 30s
}

// Host is the slice of the operating system the controller needs: start a
// process without waiting for it, find one by command line, signal it, and
// run a short-lived tool to completion.
type Host interface {
	Launch(spec LaunchSpec) (pid int, err error)
	// FindPID returns 0 when no process command line matches pattern.
	FindPID(ctx context.Context, pattern string) (int, error)
	Terminate(pid int) error
	Run(ctx context.Context, opts RunOpts) (*RunResult, error)
}
