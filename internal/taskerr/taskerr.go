// Package taskerr defines the typed error kinds the executor branches on,
// generalized from the teacher's plain ExecutionResult.Error string field
// into an errors.Is-comparable kind carried on a wrapped error.
package taskerr

import (
	"errors"
	"fmt"
)

// Kind is a semantic error category, not a Go type name. The executor
// switches on Kind rather than matching error strings.
type Kind string

const (
	// KindConfig is a configuration validation failure. Fatal at startup.
	KindConfig Kind = "config_error"
	// KindIssueSource is a failure to fetch issues. Fatal at startup.
	KindIssueSource Kind = "issue_source_error"
	// KindWorktree is a worktree creation/cleanup failure. Per-task fatal.
	KindWorktree Kind = "worktree_error"
	// KindAgent covers agent timeout, crash, budget overrun, or refusal to
	// produce changes. Per-task fatal.
	KindAgent Kind = "agent_error"
	// KindPrCreation means the branch was pushed but PR creation failed.
	// The task still counts as completed.
	KindPrCreation Kind = "pr_creation_error"
	// KindBudgetExhausted is coordinator-level: cumulative cost reached the
	// session budget.
	KindBudgetExhausted Kind = "budget_exhausted"
	// KindInterrupted is an OS signal or cooperative cancellation.
	KindInterrupted Kind = "interrupted"
)

// TaskError carries a Kind alongside the wrapped underlying error so
// callers can branch on errors.Is/errors.As without string matching.
type TaskError struct {
	Kind    Kind
	Message string
	Context map[string]string
	Err     error
}

// New builds a TaskError with no wrapped cause.
func New(kind Kind, message string) *TaskError {
	return &TaskError{Kind: kind, Message: message}
}

// Wrap builds a TaskError wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *TaskError {
	return &TaskError{Kind: kind, Message: message, Err: err}
}

// WithContext attaches key/value context (e.g. a worktree path) and returns
// the same error for chaining.
func (e *TaskError) WithContext(key, value string) *TaskError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, taskerr.New(kind, "")) style comparisons
// keyed only on Kind.
func (e *TaskError) Is(target error) bool {
	var t *TaskError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from err if it is (or wraps) a *TaskError.
func KindOf(err error) (Kind, bool) {
	var t *TaskError
	if errors.As(err, &t) {
		return t.Kind, true
	}
	return "", false
}
