package session

import (
	"os"
	"testing"
	"time"
)

func TestNewWritesPidSuffixedFilename(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "sess-1", map[string]any{"maxParallel": 3}, time.Now())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	resumed, err := Resume(dir, "sess-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if resumed.State().SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", resumed.State().SessionID)
	}
}

func TestResumeNoMatchIsError(t *testing.T) {
	dir := t.TempDir()
	_, err := Resume(dir, "missing")
	if err == nil {
		t.Fatal("expected error resuming a session with no on-disk state")
	}
}

func TestRecordCompletionAccumulatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "sess-2", nil, time.Now())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.RecordCompletion(1, true, 0.50); err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	if err := s.RecordCompletion(2, false, 0.25); err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}

	if got := s.TotalCostUsd(); got != 0.75 {
		t.Errorf("TotalCostUsd() = %v, want 0.75", got)
	}
	completed := s.CompletedIssueNumbers()
	if !completed[1] || len(completed) != 1 {
		t.Errorf("CompletedIssueNumbers() = %v", completed)
	}
	failed := s.FailedIssueNumbers()
	if !failed[2] || len(failed) != 1 {
		t.Errorf("FailedIssueNumbers() = %v", failed)
	}

	resumed, err := Resume(dir, "sess-2")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if resumed.TotalCostUsd() != 0.75 {
		t.Errorf("resumed TotalCostUsd() = %v, want 0.75", resumed.TotalCostUsd())
	}
}

func TestResumeRejectsMultipleMatches(t *testing.T) {
	dir := t.TempDir()
	s1, err := New(dir, "sess-3", nil, time.Now())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s1.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	// Simulate a second process's abandoned checkpoint for the same
	// session ID by writing a second PID-suffixed file directly.
	secondPath := s1.path[:len(s1.path)-len(".json")] + "x.json"
	data, err := os.ReadFile(s1.path)
	if err != nil {
		t.Fatalf("read first checkpoint: %v", err)
	}
	if err := os.WriteFile(secondPath, data, 0o644); err != nil {
		t.Fatalf("write second checkpoint: %v", err)
	}

	_, err = Resume(dir, "sess-3")
	if err == nil {
		t.Fatal("expected error when multiple session files match")
	}
}
