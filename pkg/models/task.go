package models

import "time"

// TaskStatus is the lifecycle state of a task inside the scheduler.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Valid reports whether s is a recognized task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Task is an issue plus its classification, tracked by the scheduler for
// the lifetime of a session. A task's IssueNumber is its stable identity;
// equality between tasks is by IssueNumber alone.
type Task struct {
	IssueNumber int        `json:"issueNumber"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Labels      []string   `json:"labels"`
	Domain      Domain     `json:"domain"`
	Status      TaskStatus `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewTask builds a pending task from an issue record and its classification.
func NewTask(issue IssueRecord, classification Classification) Task {
	return Task{
		IssueNumber: issue.Number,
		Title:       issue.Title,
		Body:        issue.Body,
		Labels:      issue.Labels,
		Domain:      classification.Domain,
		Status:      TaskStatusPending,
	}
}
