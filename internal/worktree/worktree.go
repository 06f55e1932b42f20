// Package worktree provides isolated filesystem checkouts for concurrent
// task runners, adapted from the teacher's agent.WorktreeManager: branch
// sanitization, atomic create-with-rollback, a scoped cleanup closure, and
// startup orphan recovery.
package worktree

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/autoissue/autoissue/internal/git"
	"github.com/autoissue/autoissue/internal/xlog"
)

var log = xlog.New("worktree")

// Handle is the resource returned by Create: an isolated checkout plus its
// scoped release. Owned exclusively by the caller's scope until Cleanup
// runs.
type Handle struct {
	BranchName string
	Path       string
	Cleanup    func()
}

// Manager creates and tears down isolated git worktrees rooted at a base
// branch, under <repoRoot>/.worktrees/.
type Manager struct {
	repoRoot   string
	baseBranch string
	git        git.Runner

	mu          sync.Mutex
	existsCache map[string]bool
}

// New builds a Manager for repoRoot, forking new worktrees from baseBranch.
func New(repoRoot, baseBranch string, runner git.Runner) *Manager {
	return &Manager{
		repoRoot:    repoRoot,
		baseBranch:  baseBranch,
		git:         runner,
		existsCache: make(map[string]bool),
	}
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\-_/]`)
var runsOfDashes = regexp.MustCompile(`-+`)

// sanitizeBranchName lowercases, replaces disallowed characters with '-',
// collapses runs of '-', strips leading/trailing '-', and truncates to 100
// characters, per §4.4.
func sanitizeBranchName(name string) (string, error) {
	s := strings.ToLower(name)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = runsOfDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = strings.Trim(s[:100], "-")
	}
	if s == "" {
		return "", fmt.Errorf("branch name %q sanitizes to empty string", name)
	}
	return s, nil
}

func (m *Manager) worktreesDir() string {
	return filepath.Join(m.repoRoot, ".worktrees")
}

// Create provisions a new isolated worktree on a freshly forked branch.
// Creation is atomic: any failure after partial creation rolls back before
// the error is returned. If the target path already exists, the error
// includes a git worktree prune recovery hint.
func (m *Manager) Create(branchName string) (*Handle, error) {
	sanitized, err := sanitizeBranchName(branchName)
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}

	path := filepath.Join(m.worktreesDir(), sanitized)

	if m.existsUnlocked(path) {
		return nil, fmt.Errorf(
			"worktree: path %s already exists; run `git worktree prune` and `rm -rf %s` to recover",
			path, path,
		)
	}

	if err := os.MkdirAll(m.worktreesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("worktree: create .worktrees dir: %w", err)
	}

	if err := m.git.WorktreeAddNewBranch(path, sanitized, m.baseBranch); err != nil {
		m.rollback(path, sanitized)
		return nil, fmt.Errorf("worktree: add %s on branch %s: %w", path, sanitized, err)
	}

	m.mu.Lock()
	m.existsCache[path] = true
	m.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			if err := m.git.WorktreeRemove(path, true); err != nil {
				log.Warn("remove worktree %s: %v", path, err)
				if rmErr := os.RemoveAll(path); rmErr != nil {
					log.Error("fallback rm -rf %s: %v", path, rmErr)
				}
			}
			if err := m.git.DeleteBranch(sanitized); err != nil {
				log.Warn("delete branch %s: %v", sanitized, err)
			}
			m.mu.Lock()
			delete(m.existsCache, path)
			m.mu.Unlock()
		})
	}

	return &Handle{BranchName: sanitized, Path: path, Cleanup: cleanup}, nil
}

// rollback removes any partial state left by a failed worktree creation.
func (m *Manager) rollback(path, branch string) {
	_ = m.git.WorktreeRemove(path, true)
	_ = os.RemoveAll(path)
	_ = m.git.DeleteBranch(branch)
}

// Exists reports whether path is currently a live worktree, always
// consulting the filesystem.
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ExistsCached is like Exists but memoizes positive results for the
// lifetime of the Manager, avoiding repeated stats during scheduling
// passes.
func (m *Manager) ExistsCached(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existsUnlocked(path)
}

func (m *Manager) existsUnlocked(path string) bool {
	if m.existsCache[path] {
		return true
	}
	if _, err := os.Stat(path); err == nil {
		m.existsCache[path] = true
		return true
	}
	return false
}

// autoissueBranchPrefix identifies branches this manager owns, mirroring
// the teacher's alphieWorktreePatterns check.
const autoissueBranchPrefix = "autoissue/"

type listedWorktree struct {
	path   string
	branch string
}

func (m *Manager) listWorktrees() ([]listedWorktree, error) {
	out, err := m.git.WorktreeListPorcelain()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	var worktrees []listedWorktree
	var current *listedWorktree
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current != nil {
				worktrees = append(worktrees, *current)
				current = nil
			}
		case strings.HasPrefix(line, "worktree "):
			current = &listedWorktree{path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch ") && current != nil:
			ref := strings.TrimPrefix(line, "branch ")
			current.branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	if current != nil {
		worktrees = append(worktrees, *current)
	}
	return worktrees, nil
}

// StartupCleanup removes .worktrees/ directories left behind by a crashed
// previous run, cross-checked against the still-pending issue numbers of a
// resumed session (branches encode "autoissue/issue-<n>-..."; pending
// numbers are never touched). It is used once at executor startup.
func (m *Manager) StartupCleanup(pendingIssueNumbers map[int]bool) (int, error) {
	if err := m.git.WorktreePruneExpireNow(); err != nil {
		log.Warn("prune worktrees: %v", err)
	}

	worktrees, err := m.listWorktrees()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, wt := range worktrees {
		if wt.path == m.repoRoot {
			continue
		}
		if !strings.HasPrefix(wt.branch, autoissueBranchPrefix) {
			continue
		}
		if issueNumberOf(wt.branch) != 0 && pendingIssueNumbers[issueNumberOf(wt.branch)] {
			continue
		}
		if err := m.git.WorktreeRemove(wt.path, true); err != nil {
			if rmErr := os.RemoveAll(wt.path); rmErr != nil {
				continue
			}
		}
		_ = m.git.DeleteBranch(wt.branch)
		removed++
	}
	_ = m.git.WorktreePruneExpireNow()
	return removed, nil
}

var issueNumberPattern = regexp.MustCompile(`^autoissue/issue-(\d+)-`)

func issueNumberOf(branch string) int {
	match := issueNumberPattern.FindStringSubmatch(branch)
	if match == nil {
		return 0
	}
	var n int
	_, _ = fmt.Sscanf(match[1], "%d", &n)
	return n
}
