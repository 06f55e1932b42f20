package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoissue/autoissue/internal/config"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration and API key status",
	Long: `Config prints where configuration is loaded from, the project and
user config file paths, and whether an Anthropic API key is configured and
well-formed (printed masked, never in full). With --init, it writes the
current defaults to the user config path so they can be edited in place.`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "write default configuration to the user config path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configInit {
		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		fmt.Printf("wrote default configuration to %s\n", config.GetUserConfigPath())
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("user config:    %s\n", config.GetUserConfigPath())
	if projectPath := config.GetProjectConfigPath(); projectPath != "" {
		fmt.Printf("project config: %s\n", projectPath)
	} else {
		fmt.Println("project config: (none found)")
	}
	fmt.Printf("project repo:   %s\n", cfg.Project.Repo)
	fmt.Printf("project path:   %s\n", cfg.Project.Path)

	apiKey, keyErr := config.GetAPIKey(cfg)
	source := config.GetAPIKeySource(cfg)
	fmt.Printf("api key source: %s\n", source)
	if keyErr != nil {
		fmt.Printf("api key:        (not set)\n")
		return nil
	}
	fmt.Printf("api key:        %s\n", config.MaskAPIKey(apiKey))
	if err := config.ValidateAPIKey(apiKey); err != nil {
		fmt.Printf("api key check:  %v\n", err)
	} else {
		fmt.Println("api key check:  ok")
	}

	return nil
}
