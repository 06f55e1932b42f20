package agentrunner

import (
	"context"

	"github.com/google/uuid"
)

// DryRunRunner is the deterministic stub used when the executor runs with
// dryRun: every invocation reports success at zero cost and zero duration
// without touching the worktree.
type DryRunRunner struct{}

// Run implements Runner.
func (DryRunRunner) Run(ctx context.Context, req Request) (Result, error) {
	return Result{
		Success:    true,
		CostUsd:    0,
		DurationMs: 0,
		SessionID:  uuid.New().String(),
	}, nil
}

var _ Runner = DryRunRunner{}
