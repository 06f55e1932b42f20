// Package config handles configuration loading and management for
// autoissue. It supports XDG config paths, project-level overrides, and
// environment variables, the same layering the teacher's config package
// used.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
)

// Config holds all configuration for an autoissue session.
type Config struct {
	Anthropic         AnthropicConfig `mapstructure:"anthropic"`
	Project           ProjectConfig   `mapstructure:"project"`
	Executor          ExecutorConfig  `mapstructure:"executor"`
	Agent             AgentConfig     `mapstructure:"agent"`
	MaxTotalBudgetUsd float64         `mapstructure:"max_total_budget_usd"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// ProjectConfig identifies the repository autoissue operates against.
type ProjectConfig struct {
	// Repo is "owner/name".
	Repo string `mapstructure:"repo"`
	// Path is the absolute path to the local checkout.
	Path string `mapstructure:"path"`
	// BaseBranch is the branch worktrees fork from and PRs target.
	BaseBranch string `mapstructure:"base_branch"`
}

// ExecutorConfig controls the parallel execution core.
type ExecutorConfig struct {
	MaxParallel    int  `mapstructure:"max_parallel"`
	TimeoutMinutes int  `mapstructure:"timeout_minutes"`
	CreatePr       bool `mapstructure:"create_pr"`
	PrDraft        bool `mapstructure:"pr_draft"`
}

// AgentConfig controls how the external coding agent is invoked per task.
type AgentConfig struct {
	Model        string  `mapstructure:"model"`
	MaxBudgetUsd float64 `mapstructure:"max_budget_usd"`
	MaxTurns     int     `mapstructure:"max_turns"`
}

var repoPattern = regexp.MustCompile(`^[^/]+/[^/]+$`)

var defaultMaxTurnsByModel = map[string]int{
	"opus":   5,
	"sonnet": 8,
	"haiku":  12,
}

// Validate checks the configuration against spec-mandated ranges and
// applies model-dependent defaults (maxTurns) when left unset.
func (c *Config) Validate() error {
	if !repoPattern.MatchString(c.Project.Repo) {
		return fmt.Errorf("project.repo must be \"owner/name\", got %q", c.Project.Repo)
	}
	if !filepath.IsAbs(c.Project.Path) {
		return fmt.Errorf("project.path must be absolute, got %q", c.Project.Path)
	}
	if c.Project.BaseBranch == "" {
		c.Project.BaseBranch = "main"
	}
	if c.Executor.MaxParallel < 1 || c.Executor.MaxParallel > 10 {
		return fmt.Errorf("executor.max_parallel must be in [1,10], got %d", c.Executor.MaxParallel)
	}
	if c.Executor.TimeoutMinutes < 5 || c.Executor.TimeoutMinutes > 120 {
		return fmt.Errorf("executor.timeout_minutes must be in [5,120], got %d", c.Executor.TimeoutMinutes)
	}
	switch c.Agent.Model {
	case "opus", "sonnet", "haiku":
	default:
		return fmt.Errorf("agent.model must be one of opus, sonnet, haiku, got %q", c.Agent.Model)
	}
	if c.Agent.MaxBudgetUsd < 0.01 {
		return fmt.Errorf("agent.max_budget_usd must be >= 0.01, got %v", c.Agent.MaxBudgetUsd)
	}
	if c.Agent.MaxTurns <= 0 {
		c.Agent.MaxTurns = defaultMaxTurnsByModel[c.Agent.Model]
	}
	if c.MaxTotalBudgetUsd <= 0 {
		return fmt.Errorf("max_total_budget_usd must be positive, got %v", c.MaxTotalBudgetUsd)
	}
	return nil
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.autoissue.yaml in current directory or parent)
// 3. User config (~/.config/autoissue/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file, bypassing XDG/
// project discovery (used by tests and `autoissue run --config`).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")
	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("project.repo", cfg.Project.Repo)
	v.Set("project.path", cfg.Project.Path)
	v.Set("project.base_branch", cfg.Project.BaseBranch)
	v.Set("executor.max_parallel", cfg.Executor.MaxParallel)
	v.Set("executor.timeout_minutes", cfg.Executor.TimeoutMinutes)
	v.Set("executor.create_pr", cfg.Executor.CreatePr)
	v.Set("executor.pr_draft", cfg.Executor.PrDraft)
	v.Set("agent.model", cfg.Agent.Model)
	v.Set("agent.max_budget_usd", cfg.Agent.MaxBudgetUsd)
	v.Set("agent.max_turns", cfg.Agent.MaxTurns)
	v.Set("max_total_budget_usd", cfg.MaxTotalBudgetUsd)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if one
// exists on the path from cwd to filesystem root.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("project.base_branch", "main")

	v.SetDefault("executor.max_parallel", 3)
	v.SetDefault("executor.timeout_minutes", 30)
	v.SetDefault("executor.create_pr", true)
	v.SetDefault("executor.pr_draft", false)

	v.SetDefault("agent.model", "sonnet")
	v.SetDefault("agent.max_budget_usd", 5.0)
	v.SetDefault("agent.max_turns", 0) // resolved per-model in Validate

	v.SetDefault("max_total_budget_usd", 50.0)
}

// getUserConfigDir returns the XDG config directory for autoissue.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "autoissue")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "autoissue")
	}
	return filepath.Join(home, ".config", "autoissue")
}

// findProjectConfig searches for .autoissue.yaml in the current directory
// and its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".autoissue.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config populated with built-in defaults and a
// model-appropriate max turns; Project fields are left blank for the
// caller to fill in.
func Default() *Config {
	cfg := &Config{
		Project: ProjectConfig{BaseBranch: "main"},
		Executor: ExecutorConfig{
			MaxParallel:    3,
			TimeoutMinutes: 30,
			CreatePr:       true,
			PrDraft:        false,
		},
		Agent: AgentConfig{
			Model:        "sonnet",
			MaxBudgetUsd: 5.0,
			MaxTurns:     defaultMaxTurnsByModel["sonnet"],
		},
		MaxTotalBudgetUsd: 50.0,
	}
	return cfg
}
