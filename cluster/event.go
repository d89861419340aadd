package cluster

import "ybctl/model"

type Action string

const (
	ActionProvision Action = "provision"
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionRestart   Action = "restart"
	ActionDestroy   Action = "destroy"
	ActionJoin      Action = "join"
	ActionRedis     Action = "setup-redis"
)

type Phase string

const (
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseSkipped   Phase = "skipped"
	PhaseFailed    Phase = "failed"
)

// Event reports progress on one step. Daemon is zero for cluster-wide steps.
type Event struct {
	Action Action
	Daemon model.DaemonID
	Phase  Phase
	PID    int
	Err    error
}

// Step is the display key for the event's step.
func (e Event) Step() string {
	if e.Daemon.Index == 0 {
		return string(e.Action)
	}
	return string(e.Action) + " " + e.Daemon.String()
}
