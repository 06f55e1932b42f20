// Package executor is the outer loop: it fetches candidate issues,
// schedules them through the Scheduler, and runs each one through a
// per-task runner that acquires a worktree, invokes the external agent,
// and opens a pull request. The coordinator pattern and its budget/cancel
// building blocks are generalized from the teacher's internal/api
// BudgetHandler and NotificationManager.
package executor

import "sync"

// BudgetStatus is the coarse state of a BudgetTracker, mirroring the
// teacher's token-based BudgetHandler states but counted in USD.
type BudgetStatus string

const (
	BudgetStatusOK        BudgetStatus = "ok"
	BudgetStatusWarning   BudgetStatus = "warning"
	BudgetStatusExhausted BudgetStatus = "exhausted"
)

// DefaultBudgetWarningThreshold is the fraction of maxUsd at which a
// BudgetTracker starts reporting BudgetStatusWarning.
const DefaultBudgetWarningThreshold = 0.80

// BudgetTracker accumulates cumulative session cost in USD against
// maxTotalBudgetUsd, generalized from the teacher's BudgetHandler
// (OK/Warning/Exhausted over a token count) to a dollar count.
type BudgetTracker struct {
	mu               sync.Mutex
	maxUsd           float64
	spentUsd         float64
	warningThreshold float64
	warnedLogged     bool
	exhaustedLogged  bool
}

// NewBudgetTracker builds a tracker capped at maxUsd.
func NewBudgetTracker(maxUsd float64) *BudgetTracker {
	return &BudgetTracker{maxUsd: maxUsd, warningThreshold: DefaultBudgetWarningThreshold}
}

// Add records additional spend.
func (b *BudgetTracker) Add(usd float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spentUsd += usd
}

// Spent returns cumulative cost so far.
func (b *BudgetTracker) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spentUsd
}

// Remaining returns the unspent portion of the budget, floored at zero.
func (b *BudgetTracker) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.spentUsd >= b.maxUsd {
		return 0
	}
	return b.maxUsd - b.spentUsd
}

// Status classifies the current spend against maxUsd and the warning
// threshold.
func (b *BudgetTracker) Status() BudgetStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

func (b *BudgetTracker) statusLocked() BudgetStatus {
	if b.maxUsd <= 0 || b.spentUsd >= b.maxUsd {
		return BudgetStatusExhausted
	}
	if b.spentUsd/b.maxUsd >= b.warningThreshold {
		return BudgetStatusWarning
	}
	return BudgetStatusOK
}

// Exhausted reports whether cumulative cost has reached maxUsd.
func (b *BudgetTracker) Exhausted() bool {
	return b.Status() == BudgetStatusExhausted
}

// ShouldLogExhaustion reports true exactly once, the first time the
// tracker transitions into BudgetStatusExhausted, so the coordinator logs
// budget exhaustion a single time regardless of how many completions
// arrive afterward.
func (b *BudgetTracker) ShouldLogExhaustion() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statusLocked() != BudgetStatusExhausted || b.exhaustedLogged {
		return false
	}
	b.exhaustedLogged = true
	return true
}

// ShouldLogWarning reports true exactly once, the first time the tracker
// crosses the warning threshold.
func (b *BudgetTracker) ShouldLogWarning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statusLocked() != BudgetStatusWarning || b.warnedLogged {
		return false
	}
	b.warnedLogged = true
	return true
}
