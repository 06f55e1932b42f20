package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/autoissue/autoissue/internal/agentrunner"
	"github.com/autoissue/autoissue/internal/config"
	"github.com/autoissue/autoissue/internal/executor"
	"github.com/autoissue/autoissue/internal/git"
	"github.com/autoissue/autoissue/internal/history"
	"github.com/autoissue/autoissue/internal/issuesource"
	"github.com/autoissue/autoissue/internal/prhost"
)

var (
	runLabel     string
	runIssues    []int
	runResume    bool
	runDryRun    bool
	runSessionID string
	runStateRoot string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch open issues and run the parallel execution core",
	Long: `Fetch open issues matching a label (or an explicit list of issue
numbers), classify them, and dispatch as many as fit in maxParallel
concurrently, each in its own git worktree driven by an external coding
agent. Successful tasks are pushed to a branch and opened as pull
requests.

Interrupting with Ctrl-C (or creating <stateRoot>/sessions/<id>.cancel)
stops admitting new tasks, cancels in-flight tasks (each is recorded as
failed), waits for their worktree cleanup, and persists the session so it
can be resumed with --resume.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runLabel, "label", "", "fetch open issues carrying this label")
	runCmd.Flags().IntSliceVar(&runIssues, "issues", nil, "fetch these specific issue numbers instead of a label")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume a previous session instead of starting fresh")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "run the full pipeline with a stub agent and no pull requests")
	runCmd.Flags().StringVar(&runSessionID, "session", "", "session id; generated if omitted, required with --resume")
	runCmd.Flags().StringVar(&runStateRoot, "state-root", "", "directory holding session/history state (default <project.path>/.autoissue)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runResume && runSessionID == "" {
		return fmt.Errorf("--resume requires --session <id>")
	}

	filter := issuesource.Filter{Label: runLabel, IssueNumbers: runIssues}
	if filter.Label == "" && len(filter.IssueNumbers) == 0 {
		return fmt.Errorf("one of --label or --issues is required")
	}

	stateRoot := runStateRoot
	if stateRoot == "" {
		stateRoot = filepath.Join(cfg.Project.Path, ".autoissue")
	}

	token := os.Getenv("GITHUB_TOKEN")

	source, err := issuesource.NewGitHubSource(cfg.Project.Repo, token)
	if err != nil {
		return fmt.Errorf("build issue source: %w", err)
	}

	var prHost prhostHost
	if cfg.Executor.CreatePr && !runDryRun {
		prHost, err = prhost.NewGitHubHost(cfg.Project.Repo, token)
		if err != nil {
			return fmt.Errorf("build PR host: %w", err)
		}
	} else {
		prHost = noopPRHost{}
	}

	var agent agentrunner.Runner
	if runDryRun {
		agent = agentrunner.DryRunRunner{}
	} else {
		apiKey, err := config.GetAPIKey(cfg)
		if err != nil {
			return fmt.Errorf("resolve Anthropic API key: %w", err)
		}
		agent = agentrunner.NewClaudeAPIRunner(agentrunner.ClientConfig{
			APIKey:        apiKey,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
	}

	gitRunner := git.NewRunner(cfg.Project.Path)

	historyDB, err := history.Open(history.DefaultPath(stateRoot))
	if err != nil {
		return fmt.Errorf("open execution history: %w", err)
	}
	defer historyDB.Close()

	exec, err := executor.New(executor.Dependencies{
		IssueSource: source,
		Agent:       agent,
		PRHost:      prHost,
		Git:         gitRunner,
		History:     historyDB,
	}, executor.Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: runSessionID,
		Filter:    filter,
		Resume:    runResume,
		DryRun:    runDryRun,
	})
	if err != nil {
		return fmt.Errorf("build executor: %w", err)
	}

	fmt.Printf("session %s: starting (state root %s)\n", exec.SessionID(), stateRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nreceived interrupt, stopping admission and waiting for in-flight tasks...")
		cancel()
	}()

	code, err := exec.Run(ctx)
	if err != nil {
		return fmt.Errorf("run session %s: %w", exec.SessionID(), err)
	}

	switch code {
	case executor.ExitAllCompleted:
		fmt.Println("all tasks completed")
	case executor.ExitSomeFailed:
		fmt.Println("some tasks failed; see the session and history logs")
	case executor.ExitBudgetExhausted:
		fmt.Println("budget exhausted with work remaining; resume later with --resume")
	case executor.ExitInterrupted:
		fmt.Println("interrupted; resume later with --resume")
	}

	os.Exit(int(code))
	return nil
}

// prhostHost is a local alias avoiding stutter (prhost.Host) at call sites
// in this file.
type prhostHost = prhost.Host

// noopPRHost satisfies prhost.Host without opening pull requests, used
// when executor.createPr is false or a dry run is requested.
type noopPRHost struct{}

func (noopPRHost) CreatePullRequest(ctx context.Context, req prhost.CreateRequest) (prhost.CreateResult, error) {
	return prhost.CreateResult{}, nil
}
