package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Outcome is the terminal state of a recorded task execution.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomePrFailed  Outcome = "pr_failed"
)

// Execution is one row of the audit trail: a single task's run within a
// session, independent of whether that session is still resumable.
type Execution struct {
	ID          int64
	SessionID   string
	IssueNumber int
	Title       string
	Domain      string
	BranchName  string
	Outcome     Outcome
	ErrorKind   string
	CostUsd     float64
	DurationMs  int64
	PrURL       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Record inserts a completed execution into the audit trail. Failures to
// record are logged by the caller, not treated as task failures: this
// store is supplementary, never authoritative.
func (db *DB) Record(e Execution) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO executions
			(session_id, issue_number, title, domain, branch_name, outcome, error_kind,
			 cost_usd, duration_ms, pr_url, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.IssueNumber, e.Title, e.Domain, e.BranchName, string(e.Outcome), e.ErrorKind,
		e.CostUsd, e.DurationMs, e.PrURL, formatTime(e.StartedAt), formatTime(e.FinishedAt))
	if err != nil {
		return fmt.Errorf("history: record execution for issue #%d: %w", e.IssueNumber, err)
	}
	return nil
}

// ForSession returns every recorded execution for a session, most recent
// first.
func (db *DB) ForSession(sessionID string) ([]Execution, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, session_id, issue_number, title, domain, branch_name, outcome, error_kind,
		       cost_usd, duration_ms, pr_url, started_at, finished_at
		FROM executions WHERE session_id = ? ORDER BY finished_at DESC, id DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: query session %q: %w", sessionID, err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// ForIssue returns every recorded execution across all sessions for a
// single issue number, most recent first — useful when an issue has been
// retried across multiple runs.
func (db *DB) ForIssue(issueNumber int) ([]Execution, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, session_id, issue_number, title, domain, branch_name, outcome, error_kind,
		       cost_usd, duration_ms, pr_url, started_at, finished_at
		FROM executions WHERE issue_number = ? ORDER BY finished_at DESC, id DESC
	`, issueNumber)
	if err != nil {
		return nil, fmt.Errorf("history: query issue #%d: %w", issueNumber, err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// TotalCostUsd sums cost across every recorded execution for a session,
// independent of the (also authoritative) running total kept in the JSON
// checkpoint — used to cross-check the two don't drift.
func (db *DB) TotalCostUsd(sessionID string) (float64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var total sql.NullFloat64
	row := db.conn.QueryRow(`SELECT SUM(cost_usd) FROM executions WHERE session_id = ?`, sessionID)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("history: sum cost for session %q: %w", sessionID, err)
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Float64, nil
}

func scanExecutions(rows *sql.Rows) ([]Execution, error) {
	var out []Execution
	for rows.Next() {
		var e Execution
		var outcome string
		var errorKind, branchName, prURL sql.NullString
		var startedAt, finishedAt string
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.IssueNumber, &e.Title, &e.Domain, &branchName, &outcome, &errorKind,
			&e.CostUsd, &e.DurationMs, &prURL, &startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("history: scan execution row: %w", err)
		}
		e.Outcome = Outcome(outcome)
		if branchName.Valid {
			e.BranchName = branchName.String
		}
		if errorKind.Valid {
			e.ErrorKind = errorKind.String
		}
		if prURL.Valid {
			e.PrURL = prURL.String
		}
		e.StartedAt = parseTime(startedAt)
		e.FinishedAt = parseTime(finishedAt)
		out = append(out, e)
	}
	return out, nil
}
