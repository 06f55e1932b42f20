package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "history.db")
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := setupTestDB(t)

	var count int
	row := db.conn.QueryRow("SELECT COUNT(*) FROM schema_version")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 applied migration, got %d", count)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := tempDBPath(t)
	db1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	db1.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer db2.Close()
}

func TestRecordAndForSession(t *testing.T) {
	db := setupTestDB(t)

	exec1 := Execution{
		SessionID:   "sess-1",
		IssueNumber: 42,
		Title:       "Fix login bug",
		Domain:      "backend",
		BranchName:  "autoissue/issue-42-fix-login-bug",
		Outcome:     OutcomeCompleted,
		CostUsd:     1.25,
		DurationMs:  45000,
		PrURL:       "https://example.com/pr/1",
		StartedAt:   time.Now().Add(-time.Hour),
		FinishedAt:  time.Now(),
	}
	if err := db.Record(exec1); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	exec2 := Execution{
		SessionID:   "sess-1",
		IssueNumber: 43,
		Title:       "Fix crash",
		Domain:      "backend",
		Outcome:     OutcomeFailed,
		ErrorKind:   "agent_error",
		StartedAt:   time.Now().Add(-time.Minute),
		FinishedAt:  time.Now(),
	}
	if err := db.Record(exec2); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	executions, err := db.ForSession("sess-1")
	if err != nil {
		t.Fatalf("ForSession() error = %v", err)
	}
	if len(executions) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(executions))
	}
	// Most recent first.
	if executions[0].IssueNumber != 43 {
		t.Errorf("expected most recent execution first, got issue #%d", executions[0].IssueNumber)
	}
}

func TestForIssueAcrossSessions(t *testing.T) {
	db := setupTestDB(t)

	db.Record(Execution{SessionID: "sess-1", IssueNumber: 7, Title: "x", Domain: "backend", Outcome: OutcomeFailed, StartedAt: time.Now(), FinishedAt: time.Now()})
	db.Record(Execution{SessionID: "sess-2", IssueNumber: 7, Title: "x", Domain: "backend", Outcome: OutcomeCompleted, StartedAt: time.Now(), FinishedAt: time.Now()})

	executions, err := db.ForIssue(7)
	if err != nil {
		t.Fatalf("ForIssue() error = %v", err)
	}
	if len(executions) != 2 {
		t.Fatalf("expected 2 executions across sessions, got %d", len(executions))
	}
}

func TestTotalCostUsd(t *testing.T) {
	db := setupTestDB(t)

	db.Record(Execution{SessionID: "sess-1", IssueNumber: 1, Title: "a", Domain: "backend", Outcome: OutcomeCompleted, CostUsd: 1.5, StartedAt: time.Now(), FinishedAt: time.Now()})
	db.Record(Execution{SessionID: "sess-1", IssueNumber: 2, Title: "b", Domain: "frontend", Outcome: OutcomeCompleted, CostUsd: 2.25, StartedAt: time.Now(), FinishedAt: time.Now()})

	total, err := db.TotalCostUsd("sess-1")
	if err != nil {
		t.Fatalf("TotalCostUsd() error = %v", err)
	}
	if total != 3.75 {
		t.Errorf("TotalCostUsd() = %v, want 3.75", total)
	}
}

func TestTotalCostUsdNoExecutionsIsZero(t *testing.T) {
	db := setupTestDB(t)
	total, err := db.TotalCostUsd("nonexistent")
	if err != nil {
		t.Fatalf("TotalCostUsd() error = %v", err)
	}
	if total != 0 {
		t.Errorf("TotalCostUsd() = %v, want 0", total)
	}
}
