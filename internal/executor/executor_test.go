package executor

import (
	"context"
	"testing"
	"time"

	"github.com/autoissue/autoissue/internal/agentrunner"
	"github.com/autoissue/autoissue/internal/config"
	"github.com/autoissue/autoissue/internal/issuesource"
	"github.com/autoissue/autoissue/internal/session"
	"github.com/autoissue/autoissue/pkg/models"
)

func testConfig(t *testing.T, maxParallel int, maxBudget float64) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Repo = "acme/widgets"
	cfg.Project.Path = t.TempDir()
	cfg.Executor.MaxParallel = maxParallel
	cfg.Executor.TimeoutMinutes = 30
	cfg.MaxTotalBudgetUsd = maxBudget
	return cfg
}

func backendIssue(n int) models.IssueRecord {
	return models.IssueRecord{Number: n, Title: "[Backend] fix thing", Body: "details", State: models.IssueStateOpen}
}

func frontendIssue(n int) models.IssueRecord {
	return models.IssueRecord{Number: n, Title: "[Frontend] fix thing", Body: "details", State: models.IssueStateOpen}
}

func TestRunCompletesAllTasksSuccessfully(t *testing.T) {
	cfg := testConfig(t, 2, 50)
	stateRoot := t.TempDir()

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1), frontendIssue(2)}}
	agent := &fakeAgent{result: agentrunner.Result{Success: true, CostUsd: 1.5, DurationMs: 100}}
	git := &fakeGit{hasChanges: true}
	prHost := &fakePRHost{url: "https://example.com/pr/1"}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-ok",
		Filter:    issuesource.Filter{Label: "ready"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitAllCompleted {
		t.Errorf("Run() exit code = %v, want ExitAllCompleted", code)
	}
	if agent.Calls() != 2 {
		t.Errorf("agent.Calls() = %d, want 2", agent.Calls())
	}
	if len(prHost.calls) != 2 {
		t.Errorf("len(prHost.calls) = %d, want 2", len(prHost.calls))
	}
}

func TestRunSomeTasksFail(t *testing.T) {
	cfg := testConfig(t, 2, 50)
	stateRoot := t.TempDir()

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1), frontendIssue(2)}}
	agent := &fakeAgent{result: agentrunner.Result{Success: false, ErrorDetail: "refused"}}
	git := &fakeGit{hasChanges: true}
	prHost := &fakePRHost{url: "https://example.com/pr/1"}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-fail",
		Filter:    issuesource.Filter{Label: "ready"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitSomeFailed {
		t.Errorf("Run() exit code = %v, want ExitSomeFailed", code)
	}
	if len(prHost.calls) != 0 {
		t.Errorf("len(prHost.calls) = %d, want 0 (no PR on agent failure)", len(prHost.calls))
	}
}

func TestRunNoChangesCountsAsAgentFailure(t *testing.T) {
	cfg := testConfig(t, 1, 50)
	stateRoot := t.TempDir()

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1)}}
	agent := &fakeAgent{result: agentrunner.Result{Success: true, CostUsd: 0.1}}
	git := &fakeGit{hasChanges: false, hasUnpushed: false}
	prHost := &fakePRHost{}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-nochange",
		Filter:    issuesource.Filter{Label: "ready"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitSomeFailed {
		t.Errorf("Run() exit code = %v, want ExitSomeFailed", code)
	}
	if len(prHost.calls) != 0 {
		t.Error("expected no PR to be created when the agent made no changes")
	}
}

func TestRunPrCreationFailureStillCountsTaskCompleted(t *testing.T) {
	cfg := testConfig(t, 1, 50)
	stateRoot := t.TempDir()

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1)}}
	agent := &fakeAgent{result: agentrunner.Result{Success: true, CostUsd: 0.5}}
	git := &fakeGit{hasChanges: true}
	prHost := &fakePRHost{err: errPrHostDown}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-prfail",
		Filter:    issuesource.Filter{Label: "ready"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitAllCompleted {
		t.Errorf("Run() exit code = %v, want ExitAllCompleted (PR failure is non-fatal)", code)
	}
}

func TestRunBudgetExhaustedLeavesWorkQueued(t *testing.T) {
	cfg := testConfig(t, 1, 1.0)
	stateRoot := t.TempDir()

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1), frontendIssue(2), backendIssue(3)}}
	agent := &fakeAgent{result: agentrunner.Result{Success: true, CostUsd: 0.9}}
	git := &fakeGit{hasChanges: true}
	prHost := &fakePRHost{url: "https://example.com/pr/1"}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-budget",
		Filter:    issuesource.Filter{Label: "ready"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitBudgetExhausted {
		t.Errorf("Run() exit code = %v, want ExitBudgetExhausted", code)
	}
	if agent.Calls() >= 3 {
		t.Errorf("agent.Calls() = %d, want fewer than 3 (budget should cut the run short)", agent.Calls())
	}
}

func TestRunDryRunSkipsAgentSideEffects(t *testing.T) {
	cfg := testConfig(t, 1, 50)
	stateRoot := t.TempDir()

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1)}}
	agent := &agentrunner.DryRunRunner{}
	git := &fakeGit{hasChanges: true}
	prHost := &fakePRHost{}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-dryrun",
		Filter:    issuesource.Filter{Label: "ready"},
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitAllCompleted {
		t.Errorf("Run() exit code = %v, want ExitAllCompleted", code)
	}
	if len(prHost.calls) != 0 {
		t.Error("dry run must not create pull requests")
	}
	if len(git.pushedBranches) != 0 {
		t.Error("dry run must not push branches")
	}
}

func TestRunResumeSkipsCompletedIssues(t *testing.T) {
	cfg := testConfig(t, 1, 50)
	stateRoot := t.TempDir()

	store, err := session.New(stateRoot, "sess-resume", map[string]any{}, time.Now())
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	if err := store.RecordCompletion(1, true, 2.0); err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1), frontendIssue(2)}}
	agent := &fakeAgent{result: agentrunner.Result{Success: true, CostUsd: 0.1}}
	git := &fakeGit{hasChanges: true}
	prHost := &fakePRHost{url: "https://example.com/pr/1"}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-resume",
		Filter:    issuesource.Filter{Label: "ready"},
		Resume:    true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitAllCompleted {
		t.Errorf("Run() exit code = %v, want ExitAllCompleted", code)
	}
	if agent.Calls() != 1 {
		t.Errorf("agent.Calls() = %d, want 1 (issue #1 was already completed)", agent.Calls())
	}
}

func TestRunInterruptedMarksInFlightTasksFailed(t *testing.T) {
	cfg := testConfig(t, 1, 50)
	stateRoot := t.TempDir()

	source := &fakeIssueSource{issues: []models.IssueRecord{backendIssue(1)}}
	release := make(chan struct{})
	agent := &fakeAgent{result: agentrunner.Result{Success: true, CostUsd: 0.1}}
	agent.onCall = func(req agentrunner.Request) { <-release }
	git := &fakeGit{hasChanges: true}
	prHost := &fakePRHost{}

	exec, err := New(Dependencies{IssueSource: source, Agent: agent, PRHost: prHost, Git: git}, Options{
		Config:    cfg,
		StateRoot: stateRoot,
		SessionID: "sess-int",
		Filter:    issuesource.Filter{Label: "ready"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
		close(release)
	}()

	code, err := exec.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != ExitInterrupted {
		t.Errorf("Run() exit code = %v, want ExitInterrupted", code)
	}
	if !exec.sess.FailedIssueNumbers()[1] {
		t.Errorf("FailedIssueNumbers() = %v, want issue #1 recorded as failed", exec.sess.FailedIssueNumbers())
	}
}

var errPrHostDown = &staticError{"pr host unavailable"}

type staticError struct{ msg string }

func (e *staticError) Error() string { return e.msg }
