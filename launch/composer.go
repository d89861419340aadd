package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"ybctl/model"
	"ybctl/runtime"
)

// DefaultMemoryLimit caps each tserver at 1GiB.
const DefaultMemoryLimit int64 = 1 << 30

type Composer struct {
	MemoryLimit int64
	binaries    map[string]string
}

func NewComposer() *Composer {
	return &Composer{MemoryLimit: DefaultMemoryLimit, binaries: make(map[string]string)}
}

// Binary resolves and caches the server executable for role.
func (c *Composer) Binary(role model.Role, topo *model.Topology) (string, error) {
	name := role.Binary()
	if p, ok := c.binaries[name]; ok {
		return p, nil
	}
	p, err := ResolveBinary(name, topo.BinarySearchPaths)
	if err != nil {
		return "", err
	}
	c.binaries[name] = p
	return p, nil
}

// Compose builds the launch spec for one daemon. Flag groups are emitted in
// a fixed order: shared, role, placement, then the user's extra flags, so a
// last-occurrence-wins parser lets the user override anything computed here.
func (c *Composer) Compose(id model.DaemonID, topo *model.Topology) (runtime.LaunchSpec, error) {
	bin, err := c.Binary(id.Role, topo)
	if err != nil {
		return runtime.LaunchSpec{}, err
	}

	var args []string
	args = append(args, c.sharedFlags(id, topo, bin)...)
	args = append(args, c.roleFlags(id, topo)...)
	args = append(args, placementFlags(id, topo)...)
	args = append(args, topo.ExtraFlags(id.Role)...)

	stdout, stderr := topo.LogFiles(id)
	return runtime.LaunchSpec{
		Path:   bin,
		Args:   args,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

func (c *Composer) sharedFlags(id model.DaemonID, topo *model.Topology, bin string) []string {
	root := filepath.Dir(filepath.Dir(bin))
	flags := []string{
		"--fs_data_dirs=" + strings.Join(topo.Drives(id.Index), ","),
		"--webserver_interface=" + id.Address(),
		"--rpc_bind_addresses=" + id.RPCEndpoint(),
		"--v=" + strconv.Itoa(topo.Verbosity),
		"--version_file_json_path=" + root,
	}
	if docRoot := filepath.Join(root, "www"); isDir(docRoot) {
		flags = append(flags, "--webserver_doc_root="+docRoot)
	}
	if topo.DisableCallHome {
		flags = append(flags, "--callhome_enabled=false")
	}
	if !topo.RequireClockSync {
		flags = append(flags, "--disable_clock_sync_error")
	}
	return flags
}

func (c *Composer) roleFlags(id model.DaemonID, topo *model.Topology) []string {
	shards := "--yb_num_shards_per_tserver=" + strconv.Itoa(topo.ShardsPerTServer)

	if id.Role.IsMaster() {
		flags := []string{
			"--replication_factor=" + strconv.Itoa(topo.ReplicationFactor),
			shards,
		}
		if !topo.ShellMaster {
			flags = append(flags, "--master_addresses="+topo.MasterAddresses)
		}
		return flags
	}

	ip := id.Address()
	return []string{
		"--tserver_master_addrs=" + topo.MasterAddresses,
		fmt.Sprintf("--memory_limit_hard_bytes=%d", c.MemoryLimit),
		shards,
		"--redis_proxy_bind_address=" + id.Endpoint(model.PortRedisRPC),
		"--cql_proxy_bind_address=" + id.Endpoint(model.PortCQLRPC),
		"--pgsql_proxy_bind_address=" + id.Endpoint(model.PortPgSQLRPC),
		"--local_ip_for_outbound_sockets=" + ip,
		"--use_cassandra_authentication=" + strconv.FormatBool(topo.AuthEnabled),
	}
}

func placementFlags(id model.DaemonID, topo *model.Topology) []string {
	p, ok := model.PlacementFor(topo.Placements, id.Index)
	if !ok {
		return nil
	}
	return []string{
		"--placement_cloud=" + p.Cloud,
		"--placement_region=" + p.Region,
		"--placement_zone=" + p.Zone,
	}
}

// ProcessPattern is the pgrep -f expression that identifies the daemon: its
// binary name followed by the exact rpc bind flag Compose emits.
func ProcessPattern(id model.DaemonID) string {
	return regexp.QuoteMeta(id.Role.Binary()) + ".*" +
		regexp.QuoteMeta("--rpc_bind_addresses="+id.RPCEndpoint()) + "( |$)"
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
