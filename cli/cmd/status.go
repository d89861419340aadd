package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ybctl/cli/style"
	"ybctl/cluster"
	"ybctl/model"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show every known node, its liveness and endpoints",
	Aliases: []string{"s", "ls"},
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctl, err := newController(nil)
	if err != nil {
		return err
	}
	res, err := ctl.Run(cmd.Context(), cluster.Request{Command: cluster.CmdStatus})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	printStatus(os.Stdout, res)
	return nil
}

func printStatus(out io.Writer, res *cluster.Result) {
	if !res.Exists {
		fmt.Fprintln(out, style.DimText.Render(fmt.Sprintf("No cluster at %s. Run 'ybctl create' to get started.", res.DataDir)))
		return
	}

	live := 0
	for _, n := range res.Nodes {
		if n.Live() {
			live++
		}
	}
	fmt.Fprintf(out, "%s %s\n", style.Bold.Render("YBCTL"), style.Subtitle.Render(fmt.Sprintf("%d/%d daemon(s) running", live, len(res.Nodes))))
	fmt.Fprintf(out, "  %s %s\n", style.Key.Render("Data dir"), style.Val.Render(res.DataDir))
	if res.MasterAddresses != "" {
		fmt.Fprintf(out, "  %s %s\n", style.Key.Render("Masters"), style.Val.Render(res.MasterAddresses))
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  \tROLE\tNODE\tPID\tADMIN\tREDIS\tCQL\tPGSQL")
	for _, n := range res.Nodes {
		pid := "stopped"
		if n.Live() {
			pid = strconv.Itoa(n.PID)
		}
		redis, cql, pgsql := "-", "-", "-"
		if n.Daemon.Role == model.RoleTServer {
			redis, cql, pgsql = n.Endpoints["redis"], n.Endpoints["cql"], n.Endpoints["pgsql"]
		}
		fmt.Fprintf(w, "  %s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			style.StatusDot(n.Live()), style.RoleBadge.Render(string(n.Daemon.Role)), n.Daemon.Index, pid, style.Endpoint.Render(n.AdminURL), redis, cql, pgsql)
	}
	w.Flush()
}
