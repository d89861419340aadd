package supervisor

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"ybctl/launch"
	"ybctl/model"
	"ybctl/runtime"
)

type Supervisor struct {
	host         runtime.Host
	composer     *launch.Composer
	pollInterval time.Duration
	stopTimeout  time.Duration
}

func New(host runtime.Host, composer *launch.Composer, pollInterval, stopTimeout time.Duration) *Supervisor {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Supervisor{
		host:         host,
		composer:     composer,
		pollInterval: pollInterval,
		stopTimeout:  stopTimeout,
	}
}

type StartOpts struct {
	// Initial allows starting before the cluster data dir exists; only the
	// provisioning commands set it, after creating the base dir themselves.
	Initial bool
}

// Probe returns the pid of the live daemon, or 0.
func (s *Supervisor) Probe(ctx context.Context, id model.DaemonID) (int, error) {
	pid, err := s.host.FindPID(ctx, launch.ProcessPattern(id))
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", id, err)
	}
	return pid, nil
}

// Start launches the daemon unless it is already live. It returns the pid
// and whether a new process was launched.
func (s *Supervisor) Start(ctx context.Context, id model.DaemonID, topo *model.Topology, opts StartOpts) (int, bool, error) {
	pid, err := s.Probe(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if pid != 0 {
		log.Debugf("supervisor: %s already running (pid %d)", id, pid)
		return pid, false, nil
	}

	if err := topo.ValidateDaemon(id); err != nil {
		return 0, false, err
	}
	if !opts.Initial {
		if _, err := os.Stat(topo.DataDir); err != nil {
			if os.IsNotExist(err) {
				return 0, false, model.Preconditionf("cluster data dir %s does not exist; run create first", topo.DataDir)
			}
			return 0, false, fmt.Errorf("stat %s: %w", topo.DataDir, err)
		}
	}
	for _, drive := range topo.Drives(id.Index) {
		if err := os.MkdirAll(drive, 0755); err != nil {
			return 0, false, fmt.Errorf("create drive %s: %w", drive, err)
		}
	}

	spec, err := s.composer.Compose(id, topo)
	if err != nil {
		return 0, false, err
	}
	pid, err = s.host.Launch(spec)
	if err != nil {
		return 0, false, fmt.Errorf("start %s: %w", id, err)
	}
	log.Infof("supervisor: started %s (pid %d)", id, pid)
	return pid, true, nil
}

// Stop sends SIGTERM and waits until the daemon no longer answers the probe,
// the stop timeout passes, or ctx is cancelled. Stopping a daemon that is
// not running is a no-op.
func (s *Supervisor) Stop(ctx context.Context, id model.DaemonID) error {
	pid, err := s.Probe(ctx, id)
	if err != nil {
		return err
	}
	if pid == 0 {
		log.Debugf("supervisor: %s is not running", id)
		return nil
	}

	log.Infof("supervisor: stopping %s (pid %d)", id, pid)
	if err := s.host.Terminate(pid); err != nil {
		return fmt.Errorf("stop %s: %w", id, err)
	}

	var deadline <-chan time.Time
	if s.stopTimeout > 0 {
		timer := time.NewTimer(s.stopTimeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		current, err := s.Probe(ctx, id)
		if err != nil {
			return err
		}
		if current == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("stop %s: %w", id, ctx.Err())
		case <-deadline:
			return &model.TerminationTimeoutError{Daemon: id, PID: current, Timeout: s.stopTimeout}
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) Restart(ctx context.Context, id model.DaemonID, topo *model.Topology) (int, error) {
	if err := s.Stop(ctx, id); err != nil {
		return 0, err
	}
	pid, _, err := s.Start(ctx, id, topo, StartOpts{})
	return pid, err
}

// CheckBinaries resolves the server executables for roles up front so a
// missing binary fails the command before anything is created.
func (s *Supervisor) CheckBinaries(topo *model.Topology, roles ...model.Role) error {
	for _, role := range roles {
		if _, err := s.composer.Binary(role, topo); err != nil {
			return err
		}
	}
	return nil
}
