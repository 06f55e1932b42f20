// Package git provides an interface for the git operations the worktree
// manager and task runner need: worktree lifecycle, branch bookkeeping,
// staging/committing an agent's changes, and pushing a branch upstream.
package git

// BranchOperations defines the interface for git branch operations.
type BranchOperations interface {
	// BranchExists returns true if the branch exists.
	BranchExists(name string) (bool, error)
	// DeleteBranch force-deletes the specified branch.
	DeleteBranch(name string) error
}

// DiffOperations defines the interface for git diff and status operations,
// run against a specific working directory (a worktree).
type DiffOperations interface {
	// Status returns the output of git status --porcelain in dir.
	Status(dir string) (string, error)
	// HasChanges returns true if dir has uncommitted changes.
	HasChanges(dir string) (bool, error)
	// HasUnpushedCommits returns true if branch has commits not reachable
	// from base.
	HasUnpushedCommits(dir, branch, base string) (bool, error)
}

// CommitOperations defines the interface for git commit operations, run
// inside a given worktree directory.
type CommitOperations interface {
	// AddAll stages every change in dir.
	AddAll(dir string) error
	// Commit creates a new commit with the given message in dir.
	Commit(dir, message string) error
}

// WorktreeOperations defines the interface for git worktree operations.
type WorktreeOperations interface {
	// WorktreeAddNewBranch creates a new worktree at path on a new branch
	// forked from base (git worktree add -b branch path base).
	WorktreeAddNewBranch(path, branch, base string) error
	// WorktreeRemove removes the worktree at path, optionally forced.
	WorktreeRemove(path string, force bool) error
	// WorktreeListPorcelain returns the raw porcelain output of `worktree list`.
	WorktreeListPorcelain() (string, error)
	// WorktreePruneExpireNow prunes stale worktree entries with --expire now.
	WorktreePruneExpireNow() error
}

// RemoteOperations defines the interface for git remote operations.
type RemoteOperations interface {
	// Push pushes branch from dir to the configured remote.
	Push(dir, branch string) error
}

// Runner defines the complete interface for git operations used by
// autoissue. Consumers should prefer the focused interfaces when possible.
type Runner interface {
	BranchOperations
	DiffOperations
	CommitOperations
	WorktreeOperations
	RemoteOperations
	// Run executes an arbitrary git command with the given arguments in the
	// repository root and returns its trimmed combined output.
	Run(args ...string) (string, error)
}
