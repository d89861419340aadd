package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Topology is the cluster-wide configuration for one controller invocation.
// Nothing here is persisted; the data directory layout is the only durable
// state and is re-read on every command.
type Topology struct {
	ReplicationFactor int
	ShardsPerTServer  int
	Placements        []Placement
	MasterFlags       []string
	TServerFlags      []string
	DataDir           string
	BinarySearchPaths []string
	Verbosity         int
	AuthEnabled       bool
	RequireClockSync  bool
	DisableCallHome   bool
	DrivesPerNode     int
	MaxIndex          int

	// Recomputed before each command that starts daemons.
	MasterAddresses string
	// Set while starting a master that joins an existing quorum through
	// ADD_SERVER instead of a peer list.
	ShellMaster bool
}

func (t *Topology) ExtraFlags(role Role) []string {
	if role.IsMaster() {
		return t.MasterFlags
	}
	return t.TServerFlags
}

func (t *Topology) ValidateDaemon(id DaemonID) error {
	if _, err := ParseRole(string(id.Role)); err != nil {
		return err
	}
	return ValidateIndex(id.Index, t.MaxIndex)
}

// ValidatePlacements enforces the per-command placement limit. Startup of a
// whole cluster allows up to the replication factor; single-node commands
// pass limit 1.
func (t *Topology) ValidatePlacements(limit int) error {
	if len(t.Placements) > limit {
		return &ValidationError{
			Field:   "placement",
			Message: fmt.Sprintf("%d placement entries given, at most %d allowed", len(t.Placements), limit),
		}
	}
	return nil
}

func (t *Topology) ValidateVerbosity() error {
	if t.Verbosity < 0 || t.Verbosity > 4 {
		return &ValidationError{Field: "v", Message: fmt.Sprintf("verbosity %d out of range [0, 4]", t.Verbosity)}
	}
	return nil
}

func (t *Topology) NodeDir(index int) string {
	return filepath.Join(t.DataDir, "node-"+strconv.Itoa(index))
}

// Drives lists the simulated disks of a node.
func (t *Topology) Drives(index int) []string {
	n := t.DrivesPerNode
	if n < 1 {
		n = 1
	}
	drives := make([]string, n)
	for i := range drives {
		drives[i] = filepath.Join(t.NodeDir(index), "disk-"+strconv.Itoa(i+1))
	}
	return drives
}

// RoleDir is created by the server binary itself on first start. Its
// presence is what makes a daemon "known".
func (t *Topology) RoleDir(id DaemonID) string {
	return filepath.Join(t.Drives(id.Index)[0], "yb-data", string(id.Role))
}

func (t *Topology) LogFiles(id DaemonID) (stdout, stderr string) {
	first := t.Drives(id.Index)[0]
	return filepath.Join(first, string(id.Role)+".out"), filepath.Join(first, string(id.Role)+".err")
}

// Known lists, in ascending order, the indices of every daemon of role whose
// data directory exists on disk, whether or not it is running.
func (t *Topology) Known(role Role) []int {
	var out []int
	for i := 1; i <= t.MaxIndex; i++ {
		if info, err := os.Stat(t.RoleDir(NewDaemonID(role, i))); err == nil && info.IsDir() {
			out = append(out, i)
		}
	}
	return out
}

// NextIndex is one past the highest known index of role.
func (t *Topology) NextIndex(role Role) int {
	known := t.Known(role)
	if len(known) == 0 {
		return 1
	}
	return known[len(known)-1] + 1
}
