// Package git provides an interface for the git operations the worktree
// manager and task runner need.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	execrunner "github.com/autoissue/autoissue/internal/exec"
)

// ExecRunner implements Runner against a single repository root, driving
// every git invocation through an internal/exec.CommandRunner rather than
// calling os/exec directly, so command execution can be faked in tests the
// same way the teacher's internal/agent does for its own subprocess calls.
// Worktree-scoped operations take an explicit dir so one ExecRunner can
// drive many concurrent worktrees.
type ExecRunner struct {
	repoPath string
	cmds     execrunner.CommandRunner
}

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string) *ExecRunner {
	return &ExecRunner{repoPath: repoPath, cmds: execrunner.NewRunner()}
}

// NewRunnerWithCommandRunner is the same as NewRunner but takes an explicit
// CommandRunner, for tests that need to fake git invocations.
func NewRunnerWithCommandRunner(repoPath string, cmds execrunner.CommandRunner) *ExecRunner {
	return &ExecRunner{repoPath: repoPath, cmds: cmds}
}

// runIn executes a git command with its working directory set to dir and
// returns its trimmed combined output.
func (r *ExecRunner) runIn(dir string, args ...string) (string, error) {
	out, err := r.cmds.Run(context.Background(), dir, "git", args...)
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// runSilentIn executes a git command with cmd.Dir set to dir, discarding
// output on success.
func (r *ExecRunner) runSilentIn(dir string, args ...string) error {
	_, err := r.runIn(dir, args...)
	return err
}

// run executes a git command against the repository root.
func (r *ExecRunner) run(args ...string) (string, error) {
	return r.runIn(r.repoPath, args...)
}

// runSilent executes a git command against the repository root, discarding
// output on success.
func (r *ExecRunner) runSilent(args ...string) error {
	return r.runSilentIn(r.repoPath, args...)
}

// Run executes an arbitrary git command with the given arguments in the
// repository root and returns its trimmed combined output.
func (r *ExecRunner) Run(args ...string) (string, error) {
	return r.run(args...)
}

// BranchExists returns true if the branch exists.
func (r *ExecRunner) BranchExists(name string) (bool, error) {
	_, err := r.cmds.Run(context.Background(), r.repoPath, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("check branch exists: %w", err)
	}
	return true, nil
}

// DeleteBranch force-deletes the specified branch.
func (r *ExecRunner) DeleteBranch(name string) error {
	return r.runSilent("branch", "-D", name)
}

// Status returns the output of git status --porcelain in dir.
func (r *ExecRunner) Status(dir string) (string, error) {
	return r.runIn(dir, "status", "--porcelain")
}

// HasChanges returns true if dir has uncommitted changes.
func (r *ExecRunner) HasChanges(dir string) (bool, error) {
	status, err := r.Status(dir)
	if err != nil {
		return false, err
	}
	return len(status) > 0, nil
}

// HasUnpushedCommits returns true if branch has commits not reachable from
// base.
func (r *ExecRunner) HasUnpushedCommits(dir, branch, base string) (bool, error) {
	out, err := r.runIn(dir, "rev-list", "--count", base+".."+branch)
	if err != nil {
		return false, err
	}
	return out != "" && out != "0", nil
}

// AddAll stages every change in dir.
func (r *ExecRunner) AddAll(dir string) error {
	return r.runSilentIn(dir, "add", "-A")
}

// Commit creates a new commit with the given message in dir.
func (r *ExecRunner) Commit(dir, message string) error {
	return r.runSilentIn(dir, "commit", "-m", message)
}

// WorktreeAddNewBranch creates a new worktree at path on a new branch forked
// from base.
func (r *ExecRunner) WorktreeAddNewBranch(path, branch, base string) error {
	return r.runSilent("worktree", "add", "-b", branch, path, base)
}

// WorktreeRemove removes the worktree at path, optionally forced.
func (r *ExecRunner) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	return r.runSilent(args...)
}

// WorktreeListPorcelain returns the raw porcelain output of `worktree list`.
func (r *ExecRunner) WorktreeListPorcelain() (string, error) {
	return r.run("worktree", "list", "--porcelain")
}

// WorktreePruneExpireNow prunes stale worktree entries with --expire now.
func (r *ExecRunner) WorktreePruneExpireNow() error {
	return r.runSilent("worktree", "prune", "--expire", "now")
}

// Push pushes branch from dir to the configured remote, setting upstream.
func (r *ExecRunner) Push(dir, branch string) error {
	return r.runSilentIn(dir, "push", "-u", "origin", branch)
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
