package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ybctl/config"
)

var (
	cfgPath          string
	dataDir          string
	binaryDir        string
	replication      int
	shardsPerTServer int
	requireClockSync bool
	plain            bool
	logLevel         string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ybctl",
	Short: "Run a local multi-node YugabyteDB cluster on loopback addresses",
	Long: `ybctl: create, start, stop, and reconfigure a local YugabyteDB cluster.

Each node is a yb-master and/or yb-tserver process bound to its own
loopback address (127.0.0.<index>). The data directory is the only state;
every command re-reads it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
		log.SetLevel(level)

		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("data-dir") {
			loaded.DataDir = dataDir
		}
		if flags.Changed("binary-dir") {
			loaded.BinaryDir = binaryDir
		}
		if flags.Changed("rf") {
			loaded.ReplicationFactor = replication
		}
		if flags.Changed("shards-per-tserver") {
			loaded.ShardsPerTServer = shardsPerTServer
		}
		if flags.Changed("require-clock-sync") {
			loaded.RequireClockSync = requireClockSync
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. SIGINT and SIGTERM cancel the context so
// stop and reconfiguration waits end early.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", config.DefaultPath(), "Config file (YAML)")
	pf.StringVar(&dataDir, "data-dir", "", "Cluster data directory (default ~/yugabyte-data)")
	pf.StringVar(&binaryDir, "binary-dir", "", "Directory containing yb-master, yb-tserver and yb-admin")
	pf.IntVar(&replication, "rf", 3, "Replication factor")
	pf.IntVar(&shardsPerTServer, "shards-per-tserver", 2, "Shards per tserver for each table")
	pf.BoolVar(&requireClockSync, "require-clock-sync", false, "Fail daemon startup when the clock is not synchronized")
	pf.BoolVar(&plain, "plain", false, "Plain line output instead of the live progress view")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}
