package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autoissue/autoissue/internal/config"
	"github.com/autoissue/autoissue/internal/version"
)

// configPath is the --config flag shared by every subcommand, bypassing
// XDG/project discovery when set, the same override point as the
// teacher's global --greenfield-style persistent flags.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "autoissue",
	Short: "Parallel issue-to-PR dispatcher",
	Long: `autoissue fetches open issues from a GitHub repository, classifies
each by the area of code it touches, and runs as many as it can in
parallel, each in its own isolated git worktree driven by an external
coding agent. Successful tasks are pushed and opened as pull requests.

Available commands:
  run       Fetch issues and run the parallel execution core
  classify  Classify a single issue standalone
  status    Report the state of a session
  config    Show resolved configuration and API key status
  version   Show version information

Use "autoissue [command] --help" for more information about a command.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.Get()
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file, bypassing XDG/project discovery")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("autoissue version %s\n", version.Get())
	},
}

// loadConfig loads configuration from --config when set, otherwise via
// the normal XDG/project discovery layering, and validates the result.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
