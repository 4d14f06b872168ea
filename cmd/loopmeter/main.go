package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Global flags
	configPath string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loopmeter",
		Short: "In-process scheduling-loop health monitor",
		Long: `loopmeter samples the runtime's scheduling-loop health (queueing delay
and utilization) at fixed intervals, keeps a bounded window of history,
and derives aggregated statistics, health scores, and alerts.

Service Management:
  loopmeter install [--user]   Install as system/user service
  loopmeter uninstall          Remove the service
  loopmeter start              Start the installed service
  loopmeter stop               Stop the running service
  loopmeter status             Show service status

Direct Run:
  loopmeter run [--debug]      Run the agent in foreground
  loopmeter watch              Live terminal view of lag and health
  loopmeter health             One-shot health check
  loopmeter export             Capture and export a sample window`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/loopmeter/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newWatchCmd(),
		newHealthCmd(),
		newExportCmd(),
		newInitConfigCmd(),
		newInstallCmd(),
		newUninstallCmd(),
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
