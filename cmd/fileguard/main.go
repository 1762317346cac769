package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/brettbedarf/fileguard/config"
	"github.com/brettbedarf/fileguard/internal/util"
)

var (
	verbose    int
	configPath string
)

func main() {
	rootCmd := buildRootCommand()
	rootCmd.AddCommand(buildDeleteCommand())
	rootCmd.AddCommand(buildReadCommand())
	rootCmd.AddCommand(buildReplayCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fileguard",
		Short: "Coordinate reads, writes and deletions of shared files",
		Long: `fileguard arbitrates access to files shared by loaders, caches and
cleanup routines of one process. Deleting a file that is in use is deferred
until its last reader lets go.

Commands:
  delete  Deletes files through the access manager
  read    Reads files under a granted access scope
  replay  Runs a script of begin/end/delete/sweep/clear/status operations

Examples:
  # Delete files, nothing else holds them so this is immediate
  fileguard delete ./cache/a.png ./cache/b.png

  # Replay a recorded sequence of accesses with debug logging
  fileguard replay -v 4 ./scripts/deferred.yaml

  # Use a config override file (YAML or JSON)
  fileguard replay --config ./fileguard.yaml ./scripts/deferred.yaml`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config override file")

	return cmd
}

// loadConfig initializes the logger and builds the manager config from the
// optional override file. An explicit --verbose wins over the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if configPath != "" {
		fileOverride, err := config.LoadConfigOverrideFile(configPath)
		if err != nil {
			return nil, err
		}
		override = fileOverride
	}
	if override.LogLvl == nil || cmd.Flags().Changed("verbose") {
		override.LogLvl = util.Pointer(verbose)
	}

	cfg := config.NewConfig(override)
	util.InitializeLogger(cmd.ErrOrStderr(), cfg.LogLvl)
	logger := util.GetLogger("main")
	logger.Debug().
		Str("config", configPath).
		Dur("sweepInterval", cfg.SweepInterval).
		Dur("pendingTimeout", cfg.PendingTimeout).
		Bool("foldCase", cfg.FoldCase).
		Msg("Configuration loaded")
	return cfg, nil
}
