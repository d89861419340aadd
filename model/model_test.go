package model

import (
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressIndependentOfRole(t *testing.T) {
	for _, role := range Roles {
		for i := 1; i <= 20; i++ {
			id := NewDaemonID(role, i)
			assert.Equal(t, "127.0.0."+strconv.Itoa(i), id.Address())
		}
	}
}

func TestDaemonIDString(t *testing.T) {
	assert.Equal(t, "master-3", NewDaemonID(RoleMaster, 3).String())
	assert.Equal(t, "tserver-1", NewDaemonID(RoleTServer, 1).String())
}

func TestEndpoints(t *testing.T) {
	m := NewDaemonID(RoleMaster, 2)
	assert.Equal(t, "127.0.0.2:7100", m.RPCEndpoint())
	assert.Equal(t, "http://127.0.0.2:7000", m.AdminURL())

	ts := NewDaemonID(RoleTServer, 4)
	assert.Equal(t, "127.0.0.4:9100", ts.RPCEndpoint())
	assert.Equal(t, "127.0.0.4:6379", ts.Endpoint(PortRedisRPC))
	assert.Equal(t, "127.0.0.4:9042", ts.Endpoint(PortCQLRPC))
	assert.Equal(t, "127.0.0.4:5433", ts.Endpoint(PortPgSQLRPC))
}

func TestPortSets(t *testing.T) {
	assert.Len(t, RoleMaster.Ports(), 2)
	assert.Len(t, RoleTServer.Ports(), 8)
	assert.Equal(t, "yb-master", RoleMaster.Binary())
	assert.Equal(t, "yb-tserver", RoleTServer.Binary())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("tserver")
	require.NoError(t, err)
	assert.Equal(t, RoleTServer, r)

	_, err = ParseRole("worker")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "role", verr.Field)
}

func TestValidateIndex(t *testing.T) {
	assert.NoError(t, ValidateIndex(1, 5))
	assert.NoError(t, ValidateIndex(5, 5))
	assert.Error(t, ValidateIndex(0, 5))
	assert.Error(t, ValidateIndex(6, 5))
}

func TestParsePlacements(t *testing.T) {
	got, err := ParsePlacements("aws.us-west.us-west-2a, gcp.eu.eu-1b")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Placement{Cloud: "aws", Region: "us-west", Zone: "us-west-2a"}, got[0])
	assert.Equal(t, "gcp.eu.eu-1b", got[1].String())

	none, err := ParsePlacements("  ")
	require.NoError(t, err)
	assert.Empty(t, none)

	for _, bad := range []string{"aws.us-west", "aws..zone", "a.b.c.d", "a.b.c,"} {
		_, err := ParsePlacements(bad)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "expected validation error for %q", bad)
	}
}

func TestPlacementRoundRobin(t *testing.T) {
	a := Placement{"c", "r", "a"}
	b := Placement{"c", "r", "b"}
	placements := []Placement{a, b}

	want := map[int]Placement{1: a, 2: b, 3: a, 4: b, 5: a}
	for idx, p := range want {
		got, ok := PlacementFor(placements, idx)
		require.True(t, ok)
		assert.Equal(t, p, got, "index %d", idx)
	}

	_, ok := PlacementFor(nil, 1)
	assert.False(t, ok)
}

func TestParseExtraFlags(t *testing.T) {
	got, err := ParseExtraFlags("log_cache_size_limit_mb=16, --enable_ysql=true,empty=")
	require.NoError(t, err)
	assert.Equal(t, []string{"--log_cache_size_limit_mb=16", "--enable_ysql=true", "--empty="}, got)

	_, err = ParseExtraFlags("novalue")
	assert.Error(t, err)
	_, err = ParseExtraFlags("=x")
	assert.Error(t, err)
}

func TestTopologyLayout(t *testing.T) {
	topo := &Topology{DataDir: "/data", DrivesPerNode: 2, MaxIndex: 10}
	assert.Equal(t, []string{"/data/node-3/disk-1", "/data/node-3/disk-2"}, topo.Drives(3))

	id := NewDaemonID(RoleMaster, 3)
	assert.Equal(t, "/data/node-3/disk-1/yb-data/master", topo.RoleDir(id))

	out, errFile := topo.LogFiles(id)
	assert.Equal(t, "/data/node-3/disk-1/master.out", out)
	assert.Equal(t, "/data/node-3/disk-1/master.err", errFile)
}

func TestTopologyValidation(t *testing.T) {
	topo := &Topology{ReplicationFactor: 3, MaxIndex: 10}
	assert.NoError(t, topo.ValidateDaemon(NewDaemonID(RoleTServer, 10)))
	assert.Error(t, topo.ValidateDaemon(NewDaemonID(RoleTServer, 11)))
	assert.Error(t, topo.ValidateDaemon(DaemonID{Role: "proxy", Index: 1}))

	topo.Placements = []Placement{{"a", "b", "c"}, {"a", "b", "d"}}
	assert.NoError(t, topo.ValidatePlacements(topo.ReplicationFactor))
	assert.Error(t, topo.ValidatePlacements(1))

	topo.Verbosity = 5
	assert.Error(t, topo.ValidateVerbosity())
}

func TestReconfigurationFailedError(t *testing.T) {
	err := &ReconfigurationFailedError{Daemon: NewDaemonID(RoleMaster, 4), Mode: "ADD_SERVER", Attempts: 20, Output: "timed out\n"}
	assert.Equal(t, "ADD_SERVER master-4 failed after 20 attempt(s): timed out", err.Error())
}

func TestKnownAndNextIndex(t *testing.T) {
	topo := &Topology{DataDir: t.TempDir(), DrivesPerNode: 2, MaxIndex: 10}
	assert.Empty(t, topo.Known(RoleMaster))
	assert.Equal(t, 1, topo.NextIndex(RoleMaster))

	for _, id := range []DaemonID{
		NewDaemonID(RoleMaster, 1),
		NewDaemonID(RoleMaster, 3),
		NewDaemonID(RoleTServer, 2),
	} {
		require.NoError(t, os.MkdirAll(topo.RoleDir(id), 0755))
	}
	// A drive without a role dir does not count.
	require.NoError(t, os.MkdirAll(topo.Drives(5)[0], 0755))

	assert.Equal(t, []int{1, 3}, topo.Known(RoleMaster))
	assert.Equal(t, []int{2}, topo.Known(RoleTServer))
	assert.Equal(t, 4, topo.NextIndex(RoleMaster))
	assert.Equal(t, 3, topo.NextIndex(RoleTServer))
}
