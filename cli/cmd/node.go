package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ybctl/cluster"
	"ybctl/model"
)

type nodeCommand struct {
	command cluster.Command
	short   string
	startup bool
}

var nodeCommands = []nodeCommand{
	{cluster.CmdRemoveNode, "Stop a node; a master is not removed from the quorum", false},
	{cluster.CmdStartNode, "Start one node", true},
	{cluster.CmdStopNode, "Stop one node", false},
	{cluster.CmdRestartNode, "Stop then start one node", true},
}

func init() {
	for _, nc := range nodeCommands {
		rootCmd.AddCommand(newNodeCmd(nc))
	}
	rootCmd.AddCommand(newAddNodeCmd())
}

func newNodeCmd(nc nodeCommand) *cobra.Command {
	var opts *startupOpts
	c := &cobra.Command{
		Use:     hyphenated(nc.command) + " <master|tserver> <index>",
		Aliases: aliases(nc.command),
		Short:   nc.short,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := model.ParseRole(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return &model.ValidationError{Field: "index", Message: fmt.Sprintf("node index %q is not a number", args[1])}
			}
			ctl, err := newController(opts)
			if err != nil {
				return err
			}
			return runWithView(cmd.Context(), ctl, cluster.Request{Command: nc.command, Role: role, Index: index})
		},
	}
	if nc.startup {
		opts = &startupOpts{}
		addStartupFlags(c, opts)
	}
	return c
}

func newAddNodeCmd() *cobra.Command {
	opts := &startupOpts{}
	c := &cobra.Command{
		Use:     "add-node <master|tserver>",
		Aliases: aliases(cluster.CmdAddNode),
		Short:   "Add a node at the next free index; a new master joins the running quorum",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := model.ParseRole(args[0])
			if err != nil {
				return err
			}
			ctl, err := newController(opts)
			if err != nil {
				return err
			}
			return runWithView(cmd.Context(), ctl, cluster.Request{Command: cluster.CmdAddNode, Role: role})
		},
	}
	addStartupFlags(c, opts)
	return c
}
