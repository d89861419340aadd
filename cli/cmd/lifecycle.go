package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"ybctl/cluster"
)

type clusterCommand struct {
	command cluster.Command
	short   string
	startup bool // accepts placement/verbosity/auth/extra flags
}

var clusterCommands = []clusterCommand{
	{cluster.CmdCreate, "Create a new cluster with rf masters and rf tservers", true},
	{cluster.CmdStart, "Start every stopped node, creating the cluster if needed", true},
	{cluster.CmdStop, "Stop every node, keeping data", false},
	{cluster.CmdRestart, "Stop then start every node", true},
	{cluster.CmdDestroy, "Stop every node and delete the data directory", false},
	{cluster.CmdWipeRestart, "Destroy and recreate the cluster with the same node counts", true},
	{cluster.CmdSetupRedis, "Create the system redis table", false},
}

func init() {
	for _, cc := range clusterCommands {
		rootCmd.AddCommand(newClusterCmd(cc))
	}
}

func newClusterCmd(cc clusterCommand) *cobra.Command {
	var opts *startupOpts
	c := &cobra.Command{
		Use:     hyphenated(cc.command),
		Aliases: aliases(cc.command),
		Short:   cc.short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := newController(opts)
			if err != nil {
				return err
			}
			return runWithView(cmd.Context(), ctl, cluster.Request{Command: cc.command})
		},
	}
	if cc.startup {
		opts = &startupOpts{}
		addStartupFlags(c, opts)
	}
	return c
}

func hyphenated(c cluster.Command) string {
	return strings.ReplaceAll(c.String(), "_", "-")
}

// aliases keeps the underscored spelling reachable.
func aliases(c cluster.Command) []string {
	if name := c.String(); strings.Contains(name, "_") {
		return []string{name}
	}
	return nil
}
