package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/autoissue/autoissue/internal/agentrunner"
	"github.com/autoissue/autoissue/internal/prhost"
	"github.com/autoissue/autoissue/internal/taskerr"
	"github.com/autoissue/autoissue/internal/worktree"
	"github.com/autoissue/autoissue/pkg/models"
)

// taskResult is what a per-task runner reports back to the coordinator:
// (issueNumber, success, cost) per spec §4.5 step 7, plus enough detail
// for session checkpointing, history auditing, and event emission.
type taskResult struct {
	IssueNumber int
	Title       string
	Domain      models.Domain
	BranchName  string
	Success     bool
	CostUsd     float64
	DurationMs  int64
	ErrorKind   taskerr.Kind
	PRUrl       string
	StartedAt   time.Time
}

// runTask implements spec §4.5's per-task runner: acquire a worktree,
// invoke the agent, commit/push/open a PR on success, and always release
// the worktree before reporting back.
func (e *Executor) runTask(ctx context.Context, task models.Task) taskResult {
	started := time.Now()
	base := taskResult{IssueNumber: task.IssueNumber, Title: task.Title, Domain: task.Domain, StartedAt: started}

	e.Events.Emit(Event{Type: EventTaskStarted, IssueNumber: task.IssueNumber, Title: task.Title})

	branchName := fmt.Sprintf("autoissue/issue-%d-%s", task.IssueNumber, task.Title)
	handle, err := e.worktrees.Create(branchName)
	if err != nil {
		e.log.Error("worktree for issue #%d: %v", task.IssueNumber, err)
		e.Events.Emit(Event{Type: EventTaskFailed, IssueNumber: task.IssueNumber, Err: err})
		base.DurationMs = time.Since(started).Milliseconds()
		base.ErrorKind = taskerr.KindWorktree
		return base
	}
	base.BranchName = handle.BranchName
	defer handle.Cleanup()

	timeout := time.Duration(e.cfg.Executor.TimeoutMinutes) * time.Minute
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := agentrunner.Request{
		Cwd:          handle.Path,
		Model:        e.cfg.Agent.Model,
		SystemPrompt: systemPrompt(task),
		UserPrompt:   userPrompt(task),
		MaxBudgetUsd: e.cfg.Agent.MaxBudgetUsd,
		MaxTurns:     e.cfg.Agent.MaxTurns,
		TimeoutMs:    timeout.Milliseconds(),
	}

	result, err := e.agent.Run(runCtx, req)
	if err != nil {
		e.log.Error("agent run for issue #%d: %v", task.IssueNumber, err)
		e.Events.Emit(Event{Type: EventTaskFailed, IssueNumber: task.IssueNumber, Err: err})
		base.DurationMs = time.Since(started).Milliseconds()
		base.ErrorKind = taskerr.KindAgent
		return base
	}
	base.CostUsd = result.CostUsd
	base.DurationMs = result.DurationMs

	if !result.Success {
		e.log.Warn("agent reported failure for issue #%d: %s", task.IssueNumber, result.ErrorDetail)
		e.Events.Emit(Event{Type: EventTaskFailed, IssueNumber: task.IssueNumber, Message: result.ErrorDetail})
		base.ErrorKind = taskerr.KindAgent
		return base
	}

	if e.dryRun {
		e.Events.Emit(Event{Type: EventTaskCompleted, IssueNumber: task.IssueNumber, CostUsd: result.CostUsd, DurationMs: result.DurationMs})
		base.Success = true
		return base
	}

	changed, err := e.worktreeHasChanges(handle)
	if err != nil {
		e.log.Warn("checking for changes on issue #%d: %v", task.IssueNumber, err)
	}
	if !changed {
		e.log.Warn("agent produced no changes for issue #%d", task.IssueNumber)
		e.Events.Emit(Event{Type: EventTaskFailed, IssueNumber: task.IssueNumber, Message: "agent produced no changes"})
		base.ErrorKind = taskerr.KindAgent
		return base
	}

	prURL, prErr := e.finalizeBranch(ctx, handle, task)
	base.Success = true
	base.PRUrl = prURL
	if prErr != nil {
		e.log.Error("pr creation for issue #%d: %v", task.IssueNumber, prErr)
		base.ErrorKind = taskerr.KindPrCreation
	}

	e.Events.Emit(Event{Type: EventTaskCompleted, IssueNumber: task.IssueNumber, CostUsd: result.CostUsd, DurationMs: result.DurationMs})
	return base
}

// worktreeHasChanges reports whether the agent left uncommitted edits or
// commits on the branch not yet reachable from the base branch, per
// §4.5 step 5's "worktree has commits or uncommitted modifications".
func (e *Executor) worktreeHasChanges(handle *worktree.Handle) (bool, error) {
	has, err := e.git.HasChanges(handle.Path)
	if err != nil {
		return false, err
	}
	if has {
		return true, nil
	}
	return e.git.HasUnpushedCommits(handle.Path, handle.BranchName, e.cfg.Project.BaseBranch)
}

// finalizeBranch commits any remaining uncommitted work, pushes the
// branch, and opens a pull request unless PR creation is disabled. A
// push/commit failure is returned as an error; per §7 PrCreationError is
// non-fatal to the task's overall success.
func (e *Executor) finalizeBranch(ctx context.Context, handle *worktree.Handle, task models.Task) (string, error) {
	has, err := e.git.HasChanges(handle.Path)
	if err != nil {
		return "", fmt.Errorf("check uncommitted changes: %w", err)
	}
	if has {
		if err := e.git.AddAll(handle.Path); err != nil {
			return "", fmt.Errorf("stage changes: %w", err)
		}
		msg := fmt.Sprintf("Automated changes for issue #%d: %s", task.IssueNumber, task.Title)
		if err := e.git.Commit(handle.Path, msg); err != nil {
			return "", fmt.Errorf("commit changes: %w", err)
		}
	}

	if err := e.git.Push(handle.Path, handle.BranchName); err != nil {
		return "", fmt.Errorf("push branch %s: %w", handle.BranchName, err)
	}

	if !e.cfg.Executor.CreatePr {
		return "", nil
	}

	res, err := e.prHost.CreatePullRequest(ctx, prhost.CreateRequest{
		BaseBranch: e.cfg.Project.BaseBranch,
		HeadBranch: handle.BranchName,
		Title:      fmt.Sprintf("#%d: %s", task.IssueNumber, task.Title),
		Body:       prBody(task),
		Draft:      e.cfg.Executor.PrDraft,
	})
	if err != nil {
		return "", fmt.Errorf("create pull request: %w", err)
	}
	return res.URL, nil
}

func systemPrompt(task models.Task) string {
	return fmt.Sprintf(
		"You are an autonomous software engineer working in an isolated git worktree. "+
			"Make the changes needed to resolve issue #%d directly in the files on disk. "+
			"Do not ask clarifying questions; make reasonable assumptions and implement them. "+
			"The task is classified as a %s change.",
		task.IssueNumber, task.Domain,
	)
}

func userPrompt(task models.Task) string {
	return fmt.Sprintf("Issue #%d: %s\n\n%s", task.IssueNumber, task.Title, task.Body)
}

func prBody(task models.Task) string {
	return fmt.Sprintf("Resolves #%d.\n\nAutomated change generated by autoissue.", task.IssueNumber)
}
