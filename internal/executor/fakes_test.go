package executor

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/autoissue/autoissue/internal/agentrunner"
	"github.com/autoissue/autoissue/internal/issuesource"
	"github.com/autoissue/autoissue/internal/prhost"
	"github.com/autoissue/autoissue/pkg/models"
)

// fakeIssueSource returns a fixed set of issues regardless of filter.
type fakeIssueSource struct {
	issues []models.IssueRecord
	err    error
}

func (f *fakeIssueSource) FetchIssues(ctx context.Context, filter issuesource.Filter) ([]models.IssueRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.issues, nil
}

// fakeAgent runs no real process: it reports a scripted Result per call,
// optionally respecting ctx cancellation like a real Runner must.
type fakeAgent struct {
	mu     sync.Mutex
	result agentrunner.Result
	err    error
	calls  int
	onCall func(req agentrunner.Request)
}

func (f *fakeAgent) Run(ctx context.Context, req agentrunner.Request) (agentrunner.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(req)
	}
	select {
	case <-ctx.Done():
		return agentrunner.Result{Success: false, ErrorKind: "interrupted"}, nil
	default:
	}
	if f.err != nil {
		return agentrunner.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeAgent) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakePRHost records CreatePullRequest calls and returns a scripted result.
type fakePRHost struct {
	mu    sync.Mutex
	url   string
	err   error
	calls []prhost.CreateRequest
}

func (f *fakePRHost) CreatePullRequest(ctx context.Context, req prhost.CreateRequest) (prhost.CreateResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return prhost.CreateResult{}, f.err
	}
	return prhost.CreateResult{URL: f.url}, nil
}

// fakeGit is an in-memory git.Runner for exercising the per-task runner
// without a real checkout, mirroring internal/worktree's fakeRunner.
type fakeGit struct {
	mu             sync.Mutex
	hasChanges     bool
	hasUnpushed    bool
	pushErr        error
	commitErr      error
	addAllCalls    int
	commitMessages []string
	pushedBranches []string
}

func (f *fakeGit) BranchExists(name string) (bool, error) { return false, nil }
func (f *fakeGit) DeleteBranch(name string) error          { return nil }
func (f *fakeGit) Status(dir string) (string, error)       { return "", nil }
func (f *fakeGit) HasChanges(dir string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasChanges, nil
}
func (f *fakeGit) HasUnpushedCommits(dir, branch, base string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasUnpushed, nil
}
func (f *fakeGit) AddAll(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addAllCalls++
	return nil
}
func (f *fakeGit) Commit(dir, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commitMessages = append(f.commitMessages, message)
	return nil
}
func (f *fakeGit) WorktreeAddNewBranch(path, branch, base string) error {
	return os.MkdirAll(path, 0o755)
}
func (f *fakeGit) WorktreeRemove(path string, force bool) error { return os.RemoveAll(path) }
func (f *fakeGit) WorktreeListPorcelain() (string, error)       { return "", nil }
func (f *fakeGit) WorktreePruneExpireNow() error                { return nil }
func (f *fakeGit) Push(dir, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushedBranches = append(f.pushedBranches, branch)
	return nil
}
func (f *fakeGit) Run(args ...string) (string, error) { return "", nil }

func issue(number int, title string) models.IssueRecord {
	return models.IssueRecord{
		Number: number,
		Title:  title,
		Body:   fmt.Sprintf("body for #%d", number),
		Labels: nil,
		State:  models.IssueStateOpen,
	}
}
