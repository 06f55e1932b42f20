package executor

import "time"

// EventType identifies the kind of progress event the executor emits,
// trimmed down from the teacher's OrchestratorEvent variants (which also
// cover merges and TUI-specific epic/review events) to the ones autoissue
// itself produces.
type EventType string

const (
	EventTaskQueued      EventType = "task_queued"
	EventTaskStarted     EventType = "task_started"
	EventTaskCompleted   EventType = "task_completed"
	EventTaskFailed      EventType = "task_failed"
	EventTaskBlocked     EventType = "task_blocked"
	EventBudgetExhausted EventType = "budget_exhausted"
	EventSessionDone     EventType = "session_done"
)

// Event is a single progress notification, generalized from the teacher's
// OrchestratorEvent to autoissue's Task/issue-number domain.
type Event struct {
	Type        EventType
	IssueNumber int
	Title       string
	Message     string
	Err         error
	CostUsd     float64
	DurationMs  int64
	Timestamp   time.Time
}

// Emitter is a thread-safe, non-blocking event bus, ported directly from
// the teacher's EventEmitter: a buffered channel that drops events rather
// than blocking the coordinator when nobody is listening fast enough.
type Emitter struct {
	events chan Event
}

// NewEmitter builds an Emitter with the given channel buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{events: make(chan Event, bufferSize)}
}

// Emit sends event to subscribers, dropping it if the buffer is full.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case e.events <- event:
	default:
	}
}

// Events returns the read-only subscriber channel.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Callers must stop calling Emit first.
func (e *Emitter) Close() {
	close(e.events)
}
