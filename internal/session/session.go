// Package session persists and resumes the executor's crash-recoverable
// checkpoint: a JSON file written atomically after every task completion,
// adapted from the teacher's kanban.State save/load pattern but keyed by
// session ID with the running process's PID embedded in fresh filenames.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/autoissue/autoissue/pkg/models"
)

// Store manages a single session's on-disk checkpoint under
// <stateRoot>/sessions/.
type Store struct {
	mu    sync.Mutex
	dir   string
	path  string
	state models.SessionState
}

// sessionsDir returns <stateRoot>/sessions, creating it if necessary.
func sessionsDir(stateRoot string) (string, error) {
	dir := filepath.Join(stateRoot, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("session: create sessions dir: %w", err)
	}
	return dir, nil
}

// New starts a fresh session, writing to <stateRoot>/sessions/<sessionId>-<pid>.json.
// The PID suffix lets a crashed process's abandoned file coexist with a
// freshly started session sharing the same sessionID, and is stripped on
// the Resume glob below.
func New(stateRoot, sessionID string, configSnapshot map[string]any, startedAt time.Time) (*Store, error) {
	dir, err := sessionsDir(stateRoot)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s-%d.json", sessionID, os.Getpid())
	s := &Store{
		dir:  dir,
		path: filepath.Join(dir, filename),
		state: models.SessionState{
			SessionID:      sessionID,
			StartedAt:      startedAt,
			ConfigSnapshot: configSnapshot,
		},
	}
	return s, nil
}

// Resume loads the session state file matching sessionID,
// globbing <stateRoot>/sessions/<sessionId>-*.json and requiring exactly
// one match (multiple matches indicate a concurrent or unclean prior run
// and are treated as a startup error).
func Resume(stateRoot, sessionID string) (*Store, error) {
	dir, err := sessionsDir(stateRoot)
	if err != nil {
		return nil, err
	}

	pattern := filepath.Join(dir, sessionID+"-*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("session: glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("session: no session state found for %q", sessionID)
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("session: %d session files match %q, expected exactly 1: %v", len(matches), sessionID, matches)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", matches[0], err)
	}

	var state models.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", matches[0], err)
	}

	return &Store{dir: dir, path: matches[0], state: state}, nil
}

// State returns a copy of the current in-memory session state.
func (s *Store) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CompletedIssueNumbers returns the set of issue numbers already completed
// in a resumed session, for fast membership testing at startup.
func (s *Store) CompletedIssueNumbers() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[int]bool, len(s.state.CompletedIssueNumbers))
	for _, n := range s.state.CompletedIssueNumbers {
		set[n] = true
	}
	return set
}

// FailedIssueNumbers returns the set of issue numbers already failed in a
// resumed session.
func (s *Store) FailedIssueNumbers() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[int]bool, len(s.state.FailedIssueNumbers))
	for _, n := range s.state.FailedIssueNumbers {
		set[n] = true
	}
	return set
}

// TotalCostUsd returns the restored cumulative cost (0 on a fresh session).
func (s *Store) TotalCostUsd() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalCostUsd
}

// RecordCompletion updates in-memory state for a finished task and
// persists a checkpoint. Safe for concurrent callers; the executor is
// still a single coordinator, but this guards future misuse.
func (s *Store) RecordCompletion(issueNumber int, success bool, addedCostUsd float64) error {
	s.mu.Lock()
	if success {
		s.state.CompletedIssueNumbers = append(s.state.CompletedIssueNumbers, issueNumber)
	} else {
		s.state.FailedIssueNumbers = append(s.state.FailedIssueNumbers, issueNumber)
	}
	s.state.TotalCostUsd += addedCostUsd
	s.mu.Unlock()

	return s.Checkpoint()
}

// Checkpoint writes the current state to disk atomically (write-to-temp,
// then rename), per §6.
func (s *Store) Checkpoint() error {
	s.mu.Lock()
	s.state.LastCheckpointAt = time.Now()
	snapshot := s.state
	path := s.path
	s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("session: rename temp file: %w", err)
	}
	return nil
}

// Path returns the on-disk location of this session's checkpoint file.
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}
