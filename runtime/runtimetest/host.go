// Package runtimetest provides an in-memory runtime.Host for tests.
package runtimetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"ybctl/runtime"
)

type Process struct {
	PID  int
	Spec runtime.LaunchSpec
	// Stubborn processes ignore SIGTERM.
	Stubborn bool
}

func (p *Process) Cmdline() string {
	return strings.Join(append([]string{p.Spec.Path}, p.Spec.Args...), " ")
}

// Host is a fake process table. Launching a yb-master or yb-tserver creates
// <first fs_data_dir>/yb-data/<role> the way the real binaries do on first
// start.
type Host struct {
	mu       sync.Mutex
	nextPID  int
	procs    map[int]*Process
	launches []runtime.LaunchSpec
	runs     []runtime.RunOpts

	// RunFunc decides the result of Run; nil means exit 0.
	RunFunc func(opts runtime.RunOpts) (*runtime.RunResult, error)
	// ProbeErr, if set, is returned from every FindPID.
	ProbeErr error
	// StubbornOnLaunch marks every new process as ignoring SIGTERM.
	StubbornOnLaunch bool
}

func NewHost() *Host {
	return &Host{nextPID: 1000, procs: make(map[int]*Process)}
}

func (h *Host) Launch(spec runtime.LaunchSpec) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if dir := roleDataDir(spec); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, err
		}
	}
	h.nextPID++
	pid := h.nextPID
	h.procs[pid] = &Process{PID: pid, Spec: spec, Stubborn: h.StubbornOnLaunch}
	h.launches = append(h.launches, spec)
	return pid, nil
}

func roleDataDir(spec runtime.LaunchSpec) string {
	role := strings.TrimPrefix(filepath.Base(spec.Path), "yb-")
	if role != "master" && role != "tserver" {
		return ""
	}
	for _, arg := range spec.Args {
		if v, ok := strings.CutPrefix(arg, "--fs_data_dirs="); ok {
			first, _, _ := strings.Cut(v, ",")
			return filepath.Join(first, "yb-data", role)
		}
	}
	return ""
}

func (h *Host) FindPID(ctx context.Context, pattern string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ProbeErr != nil {
		return 0, h.ProbeErr
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("pgrep %q: %w", pattern, err)
	}
	for _, pid := range h.pidsLocked() {
		if re.MatchString(h.procs[pid].Cmdline()) {
			return pid, nil
		}
	}
	return 0, nil
}

func (h *Host) Terminate(pid int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.procs[pid]; ok && !p.Stubborn {
		delete(h.procs, pid)
	}
	return nil
}

func (h *Host) Run(ctx context.Context, opts runtime.RunOpts) (*runtime.RunResult, error) {
	h.mu.Lock()
	h.runs = append(h.runs, opts)
	fn := h.RunFunc
	h.mu.Unlock()

	if fn != nil {
		return fn(opts)
	}
	return &runtime.RunResult{ExitCode: 0}, nil
}

// Kill removes a process as if it crashed.
func (h *Host) Kill(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.procs, pid)
}

func (h *Host) Processes() []*Process {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Process, 0, len(h.procs))
	for _, pid := range h.pidsLocked() {
		out = append(out, h.procs[pid])
	}
	return out
}

func (h *Host) Launches() []runtime.LaunchSpec {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]runtime.LaunchSpec(nil), h.launches...)
}

func (h *Host) Runs() []runtime.RunOpts {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]runtime.RunOpts(nil), h.runs...)
}

func (h *Host) pidsLocked() []int {
	pids := make([]int, 0, len(h.procs))
	for pid := range h.procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}
