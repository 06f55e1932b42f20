// Package issuesource defines the interface the executor uses to fetch
// candidate issues, and a GitHub-backed default implementation.
package issuesource

import (
	"context"

	"github.com/autoissue/autoissue/pkg/models"
)

// Filter selects which open issues to fetch: either a single label, or an
// explicit set of issue numbers. Exactly one should be set by the caller.
type Filter struct {
	Label        string
	IssueNumbers []int
}

// Source fetches open issue records matching a filter.
type Source interface {
	FetchIssues(ctx context.Context, filter Filter) ([]models.IssueRecord, error)
}
