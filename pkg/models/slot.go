package models

import "time"

// Slot is one of a scheduler's N concurrent execution positions. Slots are
// reused across tasks for the lifetime of a session.
type Slot struct {
	Task      *Task
	StartedAt *time.Time
}

// Occupied reports whether the slot currently holds a task.
func (s *Slot) Occupied() bool {
	return s.Task != nil
}

// Status is the point-in-time snapshot returned by Scheduler.Status().
type Status struct {
	Running   int `json:"running"`
	Queued    int `json:"queued"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Summary is the end-of-session report returned by Scheduler.Summary().
type Summary struct {
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"`
}
