// Package agentrunner defines the interface to the external code-generation
// agent and the default implementation driving it through the Anthropic
// SDK, generalized from the teacher's internal/api.Client direct-API
// integration.
package agentrunner

import "context"

// Request is everything a single agent invocation needs. Cwd must be the
// worktree's absolute path; the agent is never invoked against the main
// checkout.
type Request struct {
	Cwd          string
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxBudgetUsd float64
	MaxTurns     int
	TimeoutMs    int64
}

// Result is what the agent reports back, whether it succeeded, timed out,
// or errored.
type Result struct {
	Success     bool
	CostUsd     float64
	DurationMs  int64
	SessionID   string
	ErrorKind   string
	ErrorDetail string
}

// Runner drives a single external agent invocation to completion.
// Implementations must respect ctx cancellation by force-terminating the
// underlying process and returning a timeout/interrupted Result rather than
// an error, per the executor's propagation policy (worker-scoped failures
// never escape as unhandled errors).
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}
