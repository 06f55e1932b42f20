package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Project.BaseBranch != "main" {
		t.Errorf("expected default base branch 'main', got %q", cfg.Project.BaseBranch)
	}
	if cfg.Executor.MaxParallel != 3 {
		t.Errorf("expected default max_parallel 3, got %d", cfg.Executor.MaxParallel)
	}
	if cfg.Executor.TimeoutMinutes != 30 {
		t.Errorf("expected default timeout_minutes 30, got %d", cfg.Executor.TimeoutMinutes)
	}
	if !cfg.Executor.CreatePr {
		t.Error("expected create_pr to default true")
	}
	if cfg.Executor.PrDraft {
		t.Error("expected pr_draft to default false")
	}
	if cfg.Agent.Model != "sonnet" {
		t.Errorf("expected default model 'sonnet', got %q", cfg.Agent.Model)
	}
	if cfg.Agent.MaxBudgetUsd != 5.0 {
		t.Errorf("expected default agent budget 5.0, got %v", cfg.Agent.MaxBudgetUsd)
	}
	if cfg.Agent.MaxTurns != 8 {
		t.Errorf("expected default sonnet max turns 8, got %d", cfg.Agent.MaxTurns)
	}
	if cfg.MaxTotalBudgetUsd != 50.0 {
		t.Errorf("expected default total budget 50.0, got %v", cfg.MaxTotalBudgetUsd)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
project:
  repo: acme/widgets
  path: /repos/widgets
  base_branch: develop
executor:
  max_parallel: 5
  timeout_minutes: 45
  create_pr: true
  pr_draft: true
agent:
  model: opus
  max_budget_usd: 10.0
max_total_budget_usd: 100.0
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Project.Repo != "acme/widgets" {
		t.Errorf("expected repo 'acme/widgets', got %q", cfg.Project.Repo)
	}
	if cfg.Project.BaseBranch != "develop" {
		t.Errorf("expected base branch 'develop', got %q", cfg.Project.BaseBranch)
	}
	if cfg.Executor.MaxParallel != 5 {
		t.Errorf("expected max_parallel 5, got %d", cfg.Executor.MaxParallel)
	}
	if !cfg.Executor.PrDraft {
		t.Error("expected pr_draft true")
	}
	if cfg.Agent.Model != "opus" {
		t.Errorf("expected model 'opus', got %q", cfg.Agent.Model)
	}
	if cfg.MaxTotalBudgetUsd != 100.0 {
		t.Errorf("expected total budget 100.0, got %v", cfg.MaxTotalBudgetUsd)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Project.Repo = "acme/widgets"
		cfg.Project.Path = "/repos/widgets"
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Errorf("expected valid default config, got error: %v", err)
	}

	t.Run("rejects malformed repo", func(t *testing.T) {
		cfg := base()
		cfg.Project.Repo = "not-a-repo"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for malformed repo")
		}
	})

	t.Run("rejects relative path", func(t *testing.T) {
		cfg := base()
		cfg.Project.Path = "relative/path"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for relative path")
		}
	})

	t.Run("rejects out-of-range max parallel", func(t *testing.T) {
		cfg := base()
		cfg.Executor.MaxParallel = 0
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for max_parallel=0")
		}
		cfg.Executor.MaxParallel = 11
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for max_parallel=11")
		}
	})

	t.Run("rejects unknown model", func(t *testing.T) {
		cfg := base()
		cfg.Agent.Model = "gpt-5"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unrecognized model")
		}
	})

	t.Run("defaults max turns by model", func(t *testing.T) {
		cfg := base()
		cfg.Agent.Model = "opus"
		cfg.Agent.MaxTurns = 0
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Agent.MaxTurns != 5 {
			t.Errorf("expected opus default max turns 5, got %d", cfg.Agent.MaxTurns)
		}
	})
}

func TestExpandEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	if got := expandEnv("${TEST_VAR}"); got != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", got)
	}
	if got := expandEnv("prefix-${TEST_VAR}-suffix"); got != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", got)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/autoissue"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
