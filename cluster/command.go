package cluster

import (
	"fmt"
	"strings"

	"ybctl/model"
)

type Command int

const (
	CmdCreate Command = iota
	CmdStart
	CmdStop
	CmdRestart
	CmdDestroy
	CmdWipeRestart
	CmdAddNode
	CmdRemoveNode
	CmdStartNode
	CmdStopNode
	CmdRestartNode
	CmdStatus
	CmdSetupRedis
)

var commandNames = [...]string{
	CmdCreate:      "create",
	CmdStart:       "start",
	CmdStop:        "stop",
	CmdRestart:     "restart",
	CmdDestroy:     "destroy",
	CmdWipeRestart: "wipe_restart",
	CmdAddNode:     "add_node",
	CmdRemoveNode:  "remove_node",
	CmdStartNode:   "start_node",
	CmdStopNode:    "stop_node",
	CmdRestartNode: "restart_node",
	CmdStatus:      "status",
	CmdSetupRedis:  "setup_redis",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// ParseCommand accepts both "add_node" and "add-node".
func ParseCommand(s string) (Command, error) {
	norm := strings.ReplaceAll(s, "-", "_")
	for i, name := range commandNames {
		if name == norm {
			return Command(i), nil
		}
	}
	return 0, &model.ValidationError{Field: "command", Message: fmt.Sprintf("unknown command %q", s)}
}

// Mutating commands hold the data dir lock.
func (c Command) Mutating() bool {
	return c != CmdStatus
}

// TargetsNode reports whether the command acts on a single (role, index).
// add_node takes a role but picks its own index.
func (c Command) TargetsNode() bool {
	switch c {
	case CmdRemoveNode, CmdStartNode, CmdStopNode, CmdRestartNode:
		return true
	}
	return false
}

// Request is one controller invocation.
type Request struct {
	Command Command
	Role    model.Role
	Index   int
}

func (r Request) Daemon() model.DaemonID {
	return model.NewDaemonID(r.Role, r.Index)
}
