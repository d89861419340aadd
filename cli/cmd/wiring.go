package cmd

import (
	"github.com/spf13/cobra"

	"ybctl/cluster"
	"ybctl/launch"
	"ybctl/model"
	"ybctl/quorum"
	"ybctl/runtime"
	"ybctl/supervisor"
)

// startupOpts are the flags accepted by every command that launches daemons.
type startupOpts struct {
	placement    string
	verbosity    int
	useAuth      bool
	masterFlags  string
	tserverFlags string
}

func addStartupFlags(cmd *cobra.Command, o *startupOpts) {
	f := cmd.Flags()
	f.StringVar(&o.placement, "placement", "", "Placement: cloud.region.zone[,cloud.region.zone...]")
	f.IntVar(&o.verbosity, "v", 0, "Server log verbosity (0-4)")
	f.BoolVar(&o.useAuth, "use-auth", false, "Enable CQL authentication on tservers")
	f.StringVar(&o.masterFlags, "master-flags", "", "Extra yb-master flags: key=value[,key=value...]")
	f.StringVar(&o.tserverFlags, "tserver-flags", "", "Extra yb-tserver flags: key=value[,key=value...]")
}

func buildTopology(o *startupOpts) (*model.Topology, error) {
	topo := &model.Topology{
		ReplicationFactor: cfg.ReplicationFactor,
		ShardsPerTServer:  cfg.ShardsPerTServer,
		DataDir:           cfg.DataDir,
		BinarySearchPaths: cfg.SearchPaths(),
		RequireClockSync:  cfg.RequireClockSync,
		DisableCallHome:   cfg.DisableCallHome,
		DrivesPerNode:     cfg.DrivesPerNode,
		MaxIndex:          cfg.MaxIndex,
	}
	if o == nil {
		return topo, nil
	}

	placements, err := model.ParsePlacements(o.placement)
	if err != nil {
		return nil, err
	}
	masterFlags, err := model.ParseExtraFlags(o.masterFlags)
	if err != nil {
		return nil, err
	}
	tserverFlags, err := model.ParseExtraFlags(o.tserverFlags)
	if err != nil {
		return nil, err
	}
	topo.Placements = placements
	topo.MasterFlags = masterFlags
	topo.TServerFlags = tserverFlags
	topo.Verbosity = o.verbosity
	topo.AuthEnabled = o.useAuth
	return topo, nil
}

func newController(o *startupOpts) (*cluster.Controller, error) {
	topo, err := buildTopology(o)
	if err != nil {
		return nil, err
	}
	host := runtime.NewOSHost()
	sup := supervisor.New(host, launch.NewComposer(), cfg.StopPollInterval, cfg.StopTimeout)
	reconfig := quorum.NewReconfigurer(host, cfg.AdminBinary, cfg.SearchPaths(), cfg.ReconfigAttempts, cfg.ReconfigDelay)
	return cluster.New(topo, sup, quorum.NewResolver(sup), reconfig), nil
}
