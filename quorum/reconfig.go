package quorum

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"ybctl/launch"
	"ybctl/model"
	"ybctl/runtime"
)

type Mode string

const (
	AddServer    Mode = "ADD_SERVER"
	RemoveServer Mode = "REMOVE_SERVER"
)

// Reconfigurer drives the admin tool. A master that was just launched
// rejects membership changes until it finishes booting, so every call is
// retried up to Attempts times, Delay apart.
type Reconfigurer struct {
	host        runtime.Host
	admin       string
	searchPaths []string
	Attempts    int
	Delay       time.Duration
	CallTimeout time.Duration
}

// NewReconfigurer takes the admin tool name (or absolute path) and the
// directories to look for it in.
func NewReconfigurer(host runtime.Host, admin string, searchPaths []string, attempts int, delay time.Duration) *Reconfigurer {
	if attempts < 1 {
		attempts = 1
	}
	return &Reconfigurer{
		host:        host,
		admin:       admin,
		searchPaths: searchPaths,
		Attempts:    attempts,
		Delay:       delay,
		CallTimeout: 30 * time.Second,
	}
}

func (r *Reconfigurer) adminPath() (string, error) {
	if filepath.IsAbs(r.admin) {
		return r.admin, nil
	}
	return launch.ResolveBinary(r.admin, r.searchPaths)
}

// ChangeMasterConfig adds or removes id from the quorum reachable at masters.
func (r *Reconfigurer) ChangeMasterConfig(ctx context.Context, masters string, mode Mode, id model.DaemonID) error {
	if !id.Role.IsMaster() {
		return &model.ValidationError{Field: "role", Message: fmt.Sprintf("%s is not a master; only masters join the quorum", id)}
	}
	args := []string{
		"--master_addresses", masters,
		"change_master_config", string(mode),
		id.Address(), strconv.Itoa(id.Role.Port(model.PortRPC)),
	}
	return r.retry(ctx, id, string(mode), args)
}

// SetupRedis creates the system redis table so the redis proxies can serve.
func (r *Reconfigurer) SetupRedis(ctx context.Context, masters string) error {
	args := []string{"--master_addresses", masters, "setup_redis_table"}
	return r.retry(ctx, model.DaemonID{}, "setup_redis_table", args)
}

func (r *Reconfigurer) retry(ctx context.Context, id model.DaemonID, what string, args []string) error {
	bin, err := r.adminPath()
	if err != nil {
		return err
	}

	var last *runtime.RunResult
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		res, err := r.host.Run(ctx, runtime.RunOpts{Command: bin, Args: args, Timeout: r.CallTimeout})
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnf("reconfig: %s attempt %d/%d: %v", what, attempt, r.Attempts, err)
			last = &runtime.RunResult{ExitCode: -1, Output: err.Error()}
		case res.ExitCode == 0:
			log.Infof("reconfig: %s succeeded on attempt %d", what, attempt)
			return nil
		default:
			log.Warnf("reconfig: %s attempt %d/%d exited %d", what, attempt, r.Attempts, res.ExitCode)
			last = res
		}

		if attempt == r.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Delay):
		}
	}

	out := ""
	if last != nil {
		out = last.Output
	}
	return &model.ReconfigurationFailedError{Daemon: id, Mode: what, Attempts: r.Attempts, Output: out}
}
