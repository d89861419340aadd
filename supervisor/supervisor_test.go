package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ybctl/launch"
	"ybctl/model"
	"ybctl/runtime/runtimetest"
)

func setup(t *testing.T) (*Supervisor, *runtimetest.Host, *model.Topology) {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	for _, name := range []string{"yb-master", "yb-tserver"} {
		require.NoError(t, os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\n"), 0755))
	}
	topo := &model.Topology{
		ReplicationFactor: 1,
		ShardsPerTServer:  2,
		DataDir:           filepath.Join(t.TempDir(), "yb-data"),
		BinarySearchPaths: []string{bin},
		DrivesPerNode:     2,
		MaxIndex:          10,
		MasterAddresses:   "127.0.0.1:7100",
	}
	host := runtimetest.NewHost()
	return New(host, launch.NewComposer(), 10*time.Millisecond, 200*time.Millisecond), host, topo
}

func TestStartIdempotent(t *testing.T) {
	sup, host, topo := setup(t)
	ctx := context.Background()
	id := model.NewDaemonID(model.RoleMaster, 1)

	pid, launched, err := sup.Start(ctx, id, topo, StartOpts{Initial: true})
	require.NoError(t, err)
	assert.True(t, launched)

	again, launched, err := sup.Start(ctx, id, topo, StartOpts{})
	require.NoError(t, err)
	assert.False(t, launched)
	assert.Equal(t, pid, again)

	assert.Len(t, host.Processes(), 1)
	assert.Len(t, host.Launches(), 1)
}

func TestStartCreatesDrives(t *testing.T) {
	sup, _, topo := setup(t)
	id := model.NewDaemonID(model.RoleTServer, 3)

	_, _, err := sup.Start(context.Background(), id, topo, StartOpts{Initial: true})
	require.NoError(t, err)
	for _, d := range topo.Drives(3) {
		assert.DirExists(t, d)
	}
}

func TestStartRequiresDataDir(t *testing.T) {
	sup, host, topo := setup(t)

	_, _, err := sup.Start(context.Background(), model.NewDaemonID(model.RoleMaster, 1), topo, StartOpts{})
	var perr *model.PreconditionError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Empty(t, host.Launches())
	assert.NoDirExists(t, topo.DataDir)
}

func TestStartValidatesIndex(t *testing.T) {
	sup, host, topo := setup(t)

	_, _, err := sup.Start(context.Background(), model.NewDaemonID(model.RoleMaster, 11), topo, StartOpts{Initial: true})
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, host.Launches())
}

func TestStopThenProbe(t *testing.T) {
	sup, _, topo := setup(t)
	ctx := context.Background()
	id := model.NewDaemonID(model.RoleTServer, 1)

	_, _, err := sup.Start(ctx, id, topo, StartOpts{Initial: true})
	require.NoError(t, err)

	require.NoError(t, sup.Stop(ctx, id))
	pid, err := sup.Probe(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, pid)
}

func TestStopNotRunning(t *testing.T) {
	sup, _, _ := setup(t)
	assert.NoError(t, sup.Stop(context.Background(), model.NewDaemonID(model.RoleMaster, 2)))
}

func TestStopTimeout(t *testing.T) {
	sup, host, topo := setup(t)
	ctx := context.Background()
	id := model.NewDaemonID(model.RoleMaster, 1)

	host.StubbornOnLaunch = true
	pid, _, err := sup.Start(ctx, id, topo, StartOpts{Initial: true})
	require.NoError(t, err)

	err = sup.Stop(ctx, id)
	var terr *model.TerminationTimeoutError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, id, terr.Daemon)
	assert.Equal(t, pid, terr.PID)
}

func TestStopCancelled(t *testing.T) {
	sup, host, topo := setup(t)
	sup.stopTimeout = 0 // unbounded; only the context ends the wait
	id := model.NewDaemonID(model.RoleMaster, 1)

	host.StubbornOnLaunch = true
	_, _, err := sup.Start(context.Background(), id, topo, StartOpts{Initial: true})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = sup.Stop(ctx, id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestProbeFailureIsFatal(t *testing.T) {
	sup, host, topo := setup(t)
	host.ProbeErr = errors.New("pgrep: permission denied")

	_, _, err := sup.Start(context.Background(), model.NewDaemonID(model.RoleMaster, 1), topo, StartOpts{Initial: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Empty(t, host.Launches())
}

func TestRestartRelaunches(t *testing.T) {
	sup, _, topo := setup(t)
	ctx := context.Background()
	id := model.NewDaemonID(model.RoleTServer, 2)

	first, _, err := sup.Start(ctx, id, topo, StartOpts{Initial: true})
	require.NoError(t, err)

	second, err := sup.Restart(ctx, id, topo)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCheckBinaries(t *testing.T) {
	sup, _, topo := setup(t)
	require.NoError(t, sup.CheckBinaries(topo, model.Roles...))

	topo.BinarySearchPaths = []string{"/nonexistent"}
	// Resolved paths are cached per composer; a fresh one sees the new dirs.
	sup.composer = launch.NewComposer()
	var nf *model.BinaryNotFoundError
	assert.True(t, errors.As(sup.CheckBinaries(topo, model.RoleTServer), &nf))
}
