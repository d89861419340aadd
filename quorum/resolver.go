package quorum

import (
	"context"
	"strings"

	"ybctl/model"
)

type Prober interface {
	Probe(ctx context.Context, id model.DaemonID) (int, error)
}

type ResolveOpts struct {
	// OnCreate synthesizes addresses for masters that do not exist yet.
	OnCreate bool
	// Count overrides the replication factor in OnCreate mode.
	Count int
	// RunningOnly drops known masters whose process is not live.
	RunningOnly bool
}

type Resolver struct {
	prober Prober
}

func NewResolver(p Prober) *Resolver {
	return &Resolver{prober: p}
}

// Resolve returns the comma-joined master rpc endpoints.
func (r *Resolver) Resolve(ctx context.Context, topo *model.Topology, opts ResolveOpts) (string, error) {
	if opts.OnCreate {
		n := opts.Count
		if n == 0 {
			n = topo.ReplicationFactor
		}
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i + 1
		}
		return join(indices), nil
	}

	known := topo.Known(model.RoleMaster)
	if !opts.RunningOnly {
		return join(known), nil
	}
	var live []int
	for _, idx := range known {
		pid, err := r.prober.Probe(ctx, model.NewDaemonID(model.RoleMaster, idx))
		if err != nil {
			return "", err
		}
		if pid != 0 {
			live = append(live, idx)
		}
	}
	return join(live), nil
}

func join(indices []int) string {
	addrs := make([]string, len(indices))
	for i, idx := range indices {
		addrs[i] = model.NewDaemonID(model.RoleMaster, idx).RPCEndpoint()
	}
	return strings.Join(addrs, ",")
}
