package cluster

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"ybctl/lock"
	"ybctl/model"
	"ybctl/quorum"
	"ybctl/supervisor"
)

// NodeStatus is one row of the status report.
type NodeStatus struct {
	Daemon    model.DaemonID
	PID       int
	AdminURL  string
	Endpoints map[string]string // tservers only: redis, cql, pgsql
}

func (n NodeStatus) Live() bool { return n.PID != 0 }

type Result struct {
	Command         Command
	DataDir         string
	MasterAddresses string
	Nodes           []NodeStatus
	Started         []model.DaemonID
	// Exists is false when status ran against a missing data dir.
	Exists bool
}

type Controller struct {
	topo     *model.Topology
	sup      *supervisor.Supervisor
	resolver *quorum.Resolver
	reconfig *quorum.Reconfigurer

	// Observer, if set, receives a progress event for every step.
	Observer func(Event)

	handlers map[Command]func(context.Context, Request, *Result) error
}

func New(topo *model.Topology, sup *supervisor.Supervisor, resolver *quorum.Resolver, reconfig *quorum.Reconfigurer) *Controller {
	c := &Controller{
		topo:     topo,
		sup:      sup,
		resolver: resolver,
		reconfig: reconfig,
	}
	c.handlers = map[Command]func(context.Context, Request, *Result) error{
		CmdCreate:      c.create,
		CmdStart:       c.start,
		CmdStop:        c.stop,
		CmdRestart:     c.restart,
		CmdDestroy:     c.destroy,
		CmdWipeRestart: c.wipeRestart,
		CmdAddNode:     c.addNode,
		CmdRemoveNode:  c.stopNode,
		CmdStartNode:   c.startNode,
		CmdStopNode:    c.stopNode,
		CmdRestartNode: c.restartNode,
		CmdStatus:      c.status,
		CmdSetupRedis:  c.setupRedis,
	}
	return c
}

func (c *Controller) Topology() *model.Topology { return c.topo }

// Run executes one command. Mutating commands hold the data dir lock for
// their whole duration.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	handler, ok := c.handlers[req.Command]
	if !ok {
		return nil, &model.ValidationError{Field: "command", Message: fmt.Sprintf("unsupported command %s", req.Command)}
	}
	if req.Command.TargetsNode() {
		if err := c.topo.ValidateDaemon(req.Daemon()); err != nil {
			return nil, err
		}
	}
	if req.Command == CmdAddNode {
		if _, err := model.ParseRole(string(req.Role)); err != nil {
			return nil, err
		}
	}

	if req.Command.Mutating() {
		l, err := lock.Acquire(c.topo.DataDir)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := l.Release(); err != nil {
				log.Errorf("cluster: release lock: %v", err)
			}
		}()
	}

	res := &Result{Command: req.Command, DataDir: c.topo.DataDir}
	if err := handler(ctx, req, res); err != nil {
		return res, err
	}
	res.MasterAddresses = c.topo.MasterAddresses
	return res, nil
}

func (c *Controller) exists() (bool, error) {
	info, err := os.Stat(c.topo.DataDir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists and is not a directory", c.topo.DataDir)
		}
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", c.topo.DataDir, err)
}

func (c *Controller) emit(e Event) {
	if c.Observer != nil {
		c.Observer(e)
	}
}

// validateStartup runs the checks shared by every command that launches
// daemons, before anything is stopped, removed or created. roles names the
// server binaries the command will exec.
func (c *Controller) validateStartup(placementLimit int, roles ...model.Role) error {
	if err := c.topo.ValidateVerbosity(); err != nil {
		return err
	}
	if err := c.topo.ValidatePlacements(placementLimit); err != nil {
		return err
	}
	return c.sup.CheckBinaries(c.topo, roles...)
}

func (c *Controller) resolve(ctx context.Context, opts quorum.ResolveOpts) error {
	addrs, err := c.resolver.Resolve(ctx, c.topo, opts)
	if err != nil {
		return err
	}
	c.topo.MasterAddresses = addrs
	return nil
}

func (c *Controller) startDaemon(ctx context.Context, id model.DaemonID, opts supervisor.StartOpts, res *Result) error {
	c.emit(Event{Action: ActionStart, Daemon: id, Phase: PhaseRunning})
	pid, launched, err := c.sup.Start(ctx, id, c.topo, opts)
	if err != nil {
		c.emit(Event{Action: ActionStart, Daemon: id, Phase: PhaseFailed, Err: err})
		return err
	}
	if !launched {
		c.emit(Event{Action: ActionStart, Daemon: id, Phase: PhaseSkipped, PID: pid})
		return nil
	}
	res.Started = append(res.Started, id)
	c.emit(Event{Action: ActionStart, Daemon: id, Phase: PhaseCompleted, PID: pid})
	return nil
}

func (c *Controller) stopDaemon(ctx context.Context, id model.DaemonID) error {
	c.emit(Event{Action: ActionStop, Daemon: id, Phase: PhaseRunning})
	if err := c.sup.Stop(ctx, id); err != nil {
		c.emit(Event{Action: ActionStop, Daemon: id, Phase: PhaseFailed, Err: err})
		return err
	}
	c.emit(Event{Action: ActionStop, Daemon: id, Phase: PhaseCompleted})
	return nil
}

// known snapshots the on-disk daemons, masters first.
func (c *Controller) known() []model.DaemonID {
	var ids []model.DaemonID
	for _, role := range model.Roles {
		for _, idx := range c.topo.Known(role) {
			ids = append(ids, model.NewDaemonID(role, idx))
		}
	}
	return ids
}

func (c *Controller) startAll(ctx context.Context, ids []model.DaemonID, res *Result) error {
	for _, id := range ids {
		if err := c.startDaemon(ctx, id, supervisor.StartOpts{}, res); err != nil {
			return err
		}
	}
	return nil
}

// stopAll stops tservers before masters so no tserver outlives its quorum.
func (c *Controller) stopAll(ctx context.Context, ids []model.DaemonID) error {
	for i := len(ids) - 1; i >= 0; i-- {
		if err := c.stopDaemon(ctx, ids[i]); err != nil {
			return err
		}
	}
	return nil
}

// provision brings up a fresh cluster with the given daemon counts.
func (c *Controller) provision(ctx context.Context, masters, tservers int, res *Result) error {
	exists, err := c.exists()
	if err != nil {
		return err
	}
	if exists {
		return model.Preconditionf("cluster at %s already exists", c.topo.DataDir)
	}
	if err := c.validateStartup(c.topo.ReplicationFactor, model.Roles...); err != nil {
		return err
	}
	for _, n := range []int{masters, tservers} {
		if err := model.ValidateIndex(n, c.topo.MaxIndex); err != nil {
			return err
		}
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{OnCreate: true, Count: masters}); err != nil {
		return err
	}

	c.emit(Event{Action: ActionProvision, Phase: PhaseRunning})
	if err := os.MkdirAll(c.topo.DataDir, 0755); err != nil {
		c.emit(Event{Action: ActionProvision, Phase: PhaseFailed, Err: err})
		return fmt.Errorf("create %s: %w", c.topo.DataDir, err)
	}
	c.emit(Event{Action: ActionProvision, Phase: PhaseCompleted})
	log.Infof("cluster: creating %d master(s) and %d tserver(s) in %s", masters, tservers, c.topo.DataDir)

	initial := supervisor.StartOpts{Initial: true}
	for i := 1; i <= masters; i++ {
		if err := c.startDaemon(ctx, model.NewDaemonID(model.RoleMaster, i), initial, res); err != nil {
			return err
		}
	}
	for i := 1; i <= tservers; i++ {
		if err := c.startDaemon(ctx, model.NewDaemonID(model.RoleTServer, i), initial, res); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) create(ctx context.Context, _ Request, res *Result) error {
	rf := c.topo.ReplicationFactor
	return c.provision(ctx, rf, rf, res)
}

func (c *Controller) start(ctx context.Context, req Request, res *Result) error {
	exists, err := c.exists()
	if err != nil {
		return err
	}
	if !exists {
		return c.create(ctx, req, res)
	}
	if err := c.validateStartup(c.topo.ReplicationFactor, model.Roles...); err != nil {
		return err
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{}); err != nil {
		return err
	}
	return c.startAll(ctx, c.known(), res)
}

func (c *Controller) stop(ctx context.Context, _ Request, _ *Result) error {
	return c.stopAll(ctx, c.known())
}

func (c *Controller) restart(ctx context.Context, _ Request, res *Result) error {
	if err := c.requireCluster(); err != nil {
		return err
	}
	if err := c.validateStartup(c.topo.ReplicationFactor, model.Roles...); err != nil {
		return err
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{}); err != nil {
		return err
	}
	ids := c.known()
	if err := c.stopAll(ctx, ids); err != nil {
		return err
	}
	return c.startAll(ctx, ids, res)
}

func (c *Controller) destroy(ctx context.Context, _ Request, _ *Result) error {
	exists, err := c.exists()
	if err != nil {
		return err
	}
	if !exists {
		log.Debugf("cluster: nothing to destroy at %s", c.topo.DataDir)
		return nil
	}
	if err := c.stopAll(ctx, c.known()); err != nil {
		return err
	}
	c.emit(Event{Action: ActionDestroy, Phase: PhaseRunning})
	if err := os.RemoveAll(c.topo.DataDir); err != nil {
		c.emit(Event{Action: ActionDestroy, Phase: PhaseFailed, Err: err})
		return fmt.Errorf("remove %s: %w", c.topo.DataDir, err)
	}
	c.emit(Event{Action: ActionDestroy, Phase: PhaseCompleted})
	log.Infof("cluster: removed %s", c.topo.DataDir)
	return nil
}

// wipeRestart recreates the cluster with the same per-role node counts.
// Extra flags from the invocation that created it are not remembered.
func (c *Controller) wipeRestart(ctx context.Context, req Request, res *Result) error {
	if err := c.requireCluster(); err != nil {
		return err
	}
	masters := len(c.topo.Known(model.RoleMaster))
	tservers := len(c.topo.Known(model.RoleTServer))
	if masters == 0 {
		masters = c.topo.ReplicationFactor
	}
	if tservers == 0 {
		tservers = c.topo.ReplicationFactor
	}
	if err := c.validateStartup(c.topo.ReplicationFactor, model.Roles...); err != nil {
		return err
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{}); err != nil {
		return err
	}
	if err := c.destroy(ctx, req, res); err != nil {
		return err
	}
	return c.provision(ctx, masters, tservers, res)
}

func (c *Controller) addNode(ctx context.Context, req Request, res *Result) error {
	if err := c.requireCluster(); err != nil {
		return err
	}
	if err := c.validateStartup(1, req.Role); err != nil {
		return err
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{RunningOnly: true}); err != nil {
		return err
	}
	live := c.topo.MasterAddresses

	id := model.NewDaemonID(req.Role, c.topo.NextIndex(req.Role))
	if err := c.topo.ValidateDaemon(id); err != nil {
		return err
	}

	if !id.Role.IsMaster() {
		return c.startDaemon(ctx, id, supervisor.StartOpts{}, res)
	}

	if live == "" {
		return model.Preconditionf("no live masters to join; start the cluster before adding a master")
	}
	c.topo.ShellMaster = true
	err := c.startDaemon(ctx, id, supervisor.StartOpts{}, res)
	c.topo.ShellMaster = false
	if err != nil {
		return err
	}

	c.emit(Event{Action: ActionJoin, Daemon: id, Phase: PhaseRunning})
	if err := c.reconfig.ChangeMasterConfig(ctx, live, quorum.AddServer, id); err != nil {
		c.emit(Event{Action: ActionJoin, Daemon: id, Phase: PhaseFailed, Err: err})
		return fmt.Errorf("%s is running but did not join the quorum: %w", id, err)
	}
	c.emit(Event{Action: ActionJoin, Daemon: id, Phase: PhaseCompleted})
	return nil
}

// stopNode backs both stop_node and remove_node. Removing a master does not
// issue REMOVE_SERVER; decommissioning it from the quorum is a separate step.
func (c *Controller) stopNode(ctx context.Context, req Request, _ *Result) error {
	return c.stopDaemon(ctx, req.Daemon())
}

func (c *Controller) startNode(ctx context.Context, req Request, res *Result) error {
	if err := c.requireCluster(); err != nil {
		return err
	}
	if err := c.topo.ValidateVerbosity(); err != nil {
		return err
	}
	if err := c.sup.CheckBinaries(c.topo, req.Role); err != nil {
		return err
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{}); err != nil {
		return err
	}
	return c.startDaemon(ctx, req.Daemon(), supervisor.StartOpts{}, res)
}

func (c *Controller) restartNode(ctx context.Context, req Request, res *Result) error {
	if err := c.requireCluster(); err != nil {
		return err
	}
	if err := c.validateStartup(1, req.Role); err != nil {
		return err
	}
	// Discovery reads the data dir, not liveness, so the list is the same
	// before and after the stop.
	if err := c.resolve(ctx, quorum.ResolveOpts{}); err != nil {
		return err
	}

	id := req.Daemon()
	c.emit(Event{Action: ActionRestart, Daemon: id, Phase: PhaseRunning})
	pid, err := c.sup.Restart(ctx, id, c.topo)
	if err != nil {
		c.emit(Event{Action: ActionRestart, Daemon: id, Phase: PhaseFailed, Err: err})
		return err
	}
	res.Started = append(res.Started, id)
	c.emit(Event{Action: ActionRestart, Daemon: id, Phase: PhaseCompleted, PID: pid})
	return nil
}

func (c *Controller) status(ctx context.Context, _ Request, res *Result) error {
	exists, err := c.exists()
	if err != nil {
		return err
	}
	res.Exists = exists
	if !exists {
		return nil
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{}); err != nil {
		return err
	}
	for _, id := range c.known() {
		pid, err := c.sup.Probe(ctx, id)
		if err != nil {
			return err
		}
		ns := NodeStatus{Daemon: id, PID: pid, AdminURL: id.AdminURL()}
		if !id.Role.IsMaster() {
			ns.Endpoints = map[string]string{
				"redis": id.Endpoint(model.PortRedisRPC),
				"cql":   id.Endpoint(model.PortCQLRPC),
				"pgsql": id.Endpoint(model.PortPgSQLRPC),
			}
		}
		res.Nodes = append(res.Nodes, ns)
	}
	return nil
}

func (c *Controller) setupRedis(ctx context.Context, _ Request, _ *Result) error {
	if err := c.requireCluster(); err != nil {
		return err
	}
	if err := c.resolve(ctx, quorum.ResolveOpts{RunningOnly: true}); err != nil {
		return err
	}
	if c.topo.MasterAddresses == "" {
		return model.Preconditionf("no live masters; start the cluster first")
	}
	c.emit(Event{Action: ActionRedis, Phase: PhaseRunning})
	if err := c.reconfig.SetupRedis(ctx, c.topo.MasterAddresses); err != nil {
		c.emit(Event{Action: ActionRedis, Phase: PhaseFailed, Err: err})
		return err
	}
	c.emit(Event{Action: ActionRedis, Phase: PhaseCompleted})
	return nil
}

func (c *Controller) requireCluster() error {
	exists, err := c.exists()
	if err != nil {
		return err
	}
	if !exists {
		return model.Preconditionf("no cluster at %s; run create first", c.topo.DataDir)
	}
	return nil
}

// IsPrecondition reports whether err is a user-facing state error.
func IsPrecondition(err error) bool {
	var perr *model.PreconditionError
	return errors.As(err, &perr)
}
