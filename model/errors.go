package model

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError rejects user input before any process or directory is
// touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// PreconditionError is a user-facing failure about cluster state, e.g.
// creating a cluster that already exists. The CLI reports it without the
// internal-error banner.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

func Preconditionf(format string, args ...any) error {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

type BinaryNotFoundError struct {
	Binary string
	Dirs   []string
}

func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("%s not found in any of: %s", e.Binary, strings.Join(e.Dirs, ", "))
}

// TerminationTimeoutError is returned when a daemon is still alive after the
// stop deadline.
type TerminationTimeoutError struct {
	Daemon  DaemonID
	PID     int
	Timeout time.Duration
}

func (e *TerminationTimeoutError) Error() string {
	return fmt.Sprintf("%s (pid %d) still running %s after SIGTERM", e.Daemon, e.PID, e.Timeout)
}

// ReconfigurationFailedError is returned once every admin attempt has failed.
type ReconfigurationFailedError struct {
	Daemon   DaemonID
	Mode     string
	Attempts int
	Output   string
}

func (e *ReconfigurationFailedError) Error() string {
	target := e.Mode
	if e.Daemon.Index != 0 {
		target += " " + e.Daemon.String()
	}
	msg := fmt.Sprintf("%s failed after %d attempt(s)", target, e.Attempts)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}
