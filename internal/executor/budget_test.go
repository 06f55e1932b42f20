package executor

import "testing"

func TestBudgetTrackerStatusTransitions(t *testing.T) {
	b := NewBudgetTracker(100)

	if got := b.Status(); got != BudgetStatusOK {
		t.Fatalf("Status() = %v, want OK", got)
	}

	b.Add(85)
	if got := b.Status(); got != BudgetStatusWarning {
		t.Fatalf("Status() after 85/100 = %v, want Warning", got)
	}

	b.Add(20)
	if got := b.Status(); got != BudgetStatusExhausted {
		t.Fatalf("Status() after 105/100 = %v, want Exhausted", got)
	}
	if !b.Exhausted() {
		t.Error("Exhausted() = false, want true")
	}
}

func TestBudgetTrackerRemainingFloorsAtZero(t *testing.T) {
	b := NewBudgetTracker(10)
	b.Add(15)
	if got := b.Remaining(); got != 0 {
		t.Errorf("Remaining() = %v, want 0", got)
	}
}

func TestBudgetTrackerShouldLogExhaustionFiresOnce(t *testing.T) {
	b := NewBudgetTracker(10)
	b.Add(5)
	if b.ShouldLogExhaustion() {
		t.Fatal("ShouldLogExhaustion() true before exhaustion")
	}

	b.Add(10)
	if !b.ShouldLogExhaustion() {
		t.Fatal("ShouldLogExhaustion() false on first exhaustion")
	}
	if b.ShouldLogExhaustion() {
		t.Fatal("ShouldLogExhaustion() true on second call, want idempotent false")
	}
}

func TestBudgetTrackerShouldLogWarningFiresOnce(t *testing.T) {
	b := NewBudgetTracker(100)
	b.Add(50)
	if b.ShouldLogWarning() {
		t.Fatal("ShouldLogWarning() true below threshold")
	}

	b.Add(35)
	if !b.ShouldLogWarning() {
		t.Fatal("ShouldLogWarning() false on first crossing")
	}
	if b.ShouldLogWarning() {
		t.Fatal("ShouldLogWarning() true on second call, want idempotent false")
	}
}

func TestBudgetTrackerZeroMaxIsImmediatelyExhausted(t *testing.T) {
	b := NewBudgetTracker(0)
	if !b.Exhausted() {
		t.Error("Exhausted() = false for a zero-max tracker, want true")
	}
}
