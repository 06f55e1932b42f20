package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/autoissue/autoissue/internal/agentrunner"
	"github.com/autoissue/autoissue/internal/classifier"
	"github.com/autoissue/autoissue/internal/config"
	"github.com/autoissue/autoissue/internal/git"
	"github.com/autoissue/autoissue/internal/history"
	"github.com/autoissue/autoissue/internal/issuesource"
	"github.com/autoissue/autoissue/internal/prhost"
	"github.com/autoissue/autoissue/internal/scheduler"
	"github.com/autoissue/autoissue/internal/session"
	"github.com/autoissue/autoissue/internal/taskerr"
	"github.com/autoissue/autoissue/internal/worktree"
	"github.com/autoissue/autoissue/internal/xlog"
	"github.com/autoissue/autoissue/pkg/models"
)

// ExitCode mirrors the process exit codes mandated for `autoissue run`.
type ExitCode int

const (
	ExitAllCompleted    ExitCode = 0
	ExitSomeFailed      ExitCode = 1
	ExitBudgetExhausted ExitCode = 2
	ExitInterrupted     ExitCode = 3
	ExitStartupError    ExitCode = 4
)

// Dependencies are the external services the Executor drives. Tests supply
// fakes for all of these; production wiring supplies the GitHub/Anthropic/
// exec.Command-backed defaults.
type Dependencies struct {
	IssueSource issuesource.Source
	Agent       agentrunner.Runner
	PRHost      prhost.Host
	Git         git.Runner
	History     *history.DB // nil disables audit recording
}

// Options configures one run of the executor.
type Options struct {
	Config    *config.Config
	StateRoot string
	SessionID string
	Filter    issuesource.Filter
	Resume    bool
	DryRun    bool
}

// Executor is the outer loop described in spec §4.5: it fetches issues,
// classifies and schedules them, and drives each through a per-task
// runner, generalized from the teacher's internal/api.Orchestrator main
// loop (NewOrchestrator/Run) to autoissue's issue/worktree/agent/PR
// pipeline.
type Executor struct {
	cfg       *config.Config
	stateRoot string
	sessionID string
	filter    issuesource.Filter
	dryRun    bool

	issueSource issuesource.Source
	agent       agentrunner.Runner
	prHost      prhost.Host
	git         git.Runner
	history     *history.DB

	worktrees       *worktree.Manager
	scheduler       *scheduler.Scheduler
	sess            *session.Store
	budget          *BudgetTracker
	cancel          *CancelWatcher
	Events          *Emitter
	resumeRequested bool

	log *xlog.Logger
}

// New builds an Executor. It does not touch the filesystem or network
// beyond opening the cancel watcher and creating the sessions directory;
// issue fetching and worktree recovery happen in Run.
func New(deps Dependencies, opts Options) (*Executor, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("executor: config is required")
	}
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()[:8]
	}

	cancelWatcher, err := NewCancelWatcher(opts.StateRoot, sessionID)
	if err != nil {
		return nil, fmt.Errorf("executor: start cancel watcher: %w", err)
	}

	return &Executor{
		cfg:             opts.Config,
		stateRoot:       opts.StateRoot,
		sessionID:       sessionID,
		filter:          opts.Filter,
		dryRun:          opts.DryRun,
		issueSource:     deps.IssueSource,
		agent:           deps.Agent,
		prHost:          deps.PRHost,
		git:             deps.Git,
		history:         deps.History,
		worktrees:       worktree.New(opts.Config.Project.Path, opts.Config.Project.BaseBranch, deps.Git),
		scheduler:       scheduler.New(opts.Config.Executor.MaxParallel),
		budget:          NewBudgetTracker(opts.Config.MaxTotalBudgetUsd),
		cancel:          cancelWatcher,
		Events:          NewEmitter(64),
		resumeRequested: opts.Resume,
		log:             xlog.New("executor"),
	}, nil
}

// SessionID returns the session identifier this executor is running or
// resuming under.
func (e *Executor) SessionID() string {
	return e.sessionID
}

// Run executes the startup sequence and main loop described in spec §4.5,
// returning the process exit code the caller (cmd/autoissue/run.go)
// should use.
func (e *Executor) Run(ctx context.Context) (ExitCode, error) {
	defer e.cancel.Close()

	if err := e.startup(ctx); err != nil {
		return ExitStartupError, err
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go func() {
		select {
		case <-ctx.Done():
			stopRun()
		case <-e.cancel.Done():
			stopRun()
		case <-runCtx.Done():
		}
	}()

	interrupted, err := e.mainLoop(runCtx)
	if err != nil {
		_ = e.sess.Checkpoint()
		return ExitStartupError, err
	}

	summary := e.scheduler.Summary()
	e.Events.Emit(Event{Type: EventSessionDone, Message: fmt.Sprintf("completed=%d failed=%d", summary.Completed, summary.Failed)})
	_ = e.sess.Checkpoint()

	switch {
	case interrupted:
		return ExitInterrupted, nil
	case e.budget.Exhausted() && e.scheduler.HasWork():
		return ExitBudgetExhausted, nil
	case summary.Failed > 0:
		return ExitSomeFailed, nil
	default:
		return ExitAllCompleted, nil
	}
}

// startup implements spec §4.5 Startup: resume-or-fresh session state,
// issue fetch, classification, enqueue, and worktree orphan cleanup.
func (e *Executor) startup(ctx context.Context) error {
	var completed, failed map[int]bool

	if e.filter.Label == "" && len(e.filter.IssueNumbers) == 0 {
		return fmt.Errorf("executor: filter must select a label or explicit issue numbers")
	}

	configSnapshot := map[string]any{
		"project.repo":            e.cfg.Project.Repo,
		"project.baseBranch":      e.cfg.Project.BaseBranch,
		"executor.maxParallel":    e.cfg.Executor.MaxParallel,
		"executor.timeoutMinutes": e.cfg.Executor.TimeoutMinutes,
		"executor.createPr":       e.cfg.Executor.CreatePr,
		"executor.prDraft":        e.cfg.Executor.PrDraft,
		"agent.model":             e.cfg.Agent.Model,
		"agent.maxBudgetUsd":      e.cfg.Agent.MaxBudgetUsd,
		"maxTotalBudgetUsd":       e.cfg.MaxTotalBudgetUsd,
	}

	if e.resumeRequested {
		store, err := session.Resume(e.stateRoot, e.sessionID)
		if err != nil {
			return fmt.Errorf("executor: resume session %s: %w", e.sessionID, err)
		}
		e.sess = store
		completed = store.CompletedIssueNumbers()
		failed = store.FailedIssueNumbers()
		e.budget.Add(store.TotalCostUsd())
	} else {
		store, err := session.New(e.stateRoot, e.sessionID, configSnapshot, time.Now())
		if err != nil {
			return fmt.Errorf("executor: create session %s: %w", e.sessionID, err)
		}
		e.sess = store
		completed = map[int]bool{}
		failed = map[int]bool{}
	}

	issues, err := e.issueSource.FetchIssues(ctx, e.filter)
	if err != nil {
		return taskerr.Wrap(taskerr.KindIssueSource, "fetch issues", err)
	}

	pending := map[int]bool{}
	for _, issue := range issues {
		if completed[issue.Number] || failed[issue.Number] {
			continue
		}
		classification := classifier.Classify(issue)
		task := models.NewTask(issue, classification)
		e.scheduler.Enqueue(task)
		pending[issue.Number] = true
		e.Events.Emit(Event{Type: EventTaskQueued, IssueNumber: issue.Number, Title: issue.Title})
	}

	if removed, err := e.worktrees.StartupCleanup(pending); err != nil {
		e.log.Warn("startup worktree cleanup: %v", err)
	} else if removed > 0 {
		e.log.Info("removed %d orphaned worktree(s) from a prior run", removed)
	}

	return nil
}

// mainLoop implements spec §4.5's "While hasWork()" loop and §5's
// single-completion-event fan-out/fan-in via errgroup.WithContext, with a
// completion channel read inside the group rather than a Wait() barrier.
func (e *Executor) mainLoop(ctx context.Context) (interrupted bool, err error) {
	g, gctx := errgroup.WithContext(ctx)
	completions := make(chan taskResult, e.cfg.Executor.MaxParallel)
	active := 0

	for {
		select {
		case <-ctx.Done():
			interrupted = true
		default:
		}

		if interrupted {
			break
		}

		if e.budget.ShouldLogExhaustion() {
			e.log.Warn("cumulative cost %.2f reached budget %.2f; admitting no further tasks", e.budget.Spent(), e.cfg.MaxTotalBudgetUsd)
			e.Events.Emit(Event{Type: EventBudgetExhausted, Message: "budget exhausted"})
		}
		if e.budget.ShouldLogWarning() {
			e.log.Warn("cumulative cost %.2f is approaching budget %.2f", e.budget.Spent(), e.cfg.MaxTotalBudgetUsd)
		}

		if !e.budget.Exhausted() && e.scheduler.HasWork() {
			admitted := e.scheduler.FillSlots()
			for _, t := range admitted {
				task := t
				active++
				g.Go(func() error {
					res := e.runTask(gctx, task)
					// completions is buffered to MaxParallel and active
					// never exceeds it, so this send never blocks. It must
					// be unconditional: dropping it on gctx.Done() would
					// leave the shutdown drain below waiting on a
					// completion that never arrives, and silently lose the
					// task instead of marking it failed.
					completions <- res
					return nil
				})
			}
			for issueNumber, reason := range e.scheduler.BlockReasons() {
				e.Events.Emit(Event{Type: EventTaskBlocked, IssueNumber: issueNumber, Message: reason})
			}
		}

		if active == 0 {
			switch {
			case !e.scheduler.HasWork():
				// Nothing left to do.
			case e.budget.Exhausted():
				// Budget deliberately stopped admission; remaining queue is
				// left for the caller to report as ExitBudgetExhausted.
			default:
				return false, fmt.Errorf("executor: no tasks running and none admitted, but work remains queued (all queued tasks permanently blocked)")
			}
			break
		}

		select {
		case res := <-completions:
			active--
			e.scheduler.Complete(res.IssueNumber, res.Success)
			e.budget.Add(res.CostUsd)
			if recErr := e.sess.RecordCompletion(res.IssueNumber, res.Success, res.CostUsd); recErr != nil {
				e.log.Error("checkpoint session state: %v", recErr)
			}
			e.recordHistory(res)
		case <-ctx.Done():
			interrupted = true
		}
	}

	// Shutdown: await in-flight task runners, bounded by their own
	// per-task timeouts, then persist.
	for active > 0 {
		res := <-completions
		active--
		e.scheduler.Complete(res.IssueNumber, res.Success)
		e.budget.Add(res.CostUsd)
		_ = e.sess.RecordCompletion(res.IssueNumber, res.Success, res.CostUsd)
		e.recordHistory(res)
	}
	_ = g.Wait()

	return interrupted, nil
}

func (e *Executor) recordHistory(res taskResult) {
	if e.history == nil {
		return
	}
	outcome := history.OutcomeFailed
	switch {
	case res.Success && res.ErrorKind == taskerr.KindPrCreation:
		outcome = history.OutcomePrFailed
	case res.Success:
		outcome = history.OutcomeCompleted
	}
	rec := history.Execution{
		SessionID:   e.sessionID,
		IssueNumber: res.IssueNumber,
		Title:       res.Title,
		Domain:      string(res.Domain),
		BranchName:  res.BranchName,
		Outcome:     outcome,
		ErrorKind:   string(res.ErrorKind),
		CostUsd:     res.CostUsd,
		DurationMs:  res.DurationMs,
		PrURL:       res.PRUrl,
		StartedAt:   res.StartedAt,
		FinishedAt:  time.Now(),
	}
	if err := e.history.Record(rec); err != nil {
		e.log.Warn("record execution history for issue #%d: %v", res.IssueNumber, err)
	}
}
