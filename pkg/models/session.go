package models

import "time"

// SessionState is the durable, crash-resumable checkpoint persisted to
// <stateRoot>/sessions/<sessionId>-<pid>.json after every task completion.
type SessionState struct {
	SessionID             string         `json:"sessionId"`
	StartedAt             time.Time      `json:"startedAt"`
	ConfigSnapshot        map[string]any `json:"configSnapshot"`
	CompletedIssueNumbers []int          `json:"completedIssueNumbers"`
	FailedIssueNumbers    []int          `json:"failedIssueNumbers"`
	TotalCostUsd          float64        `json:"totalCostUsd"`
	LastCheckpointAt      time.Time      `json:"lastCheckpointAt"`
}
