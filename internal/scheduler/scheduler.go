// Package scheduler implements the sliding-window admission scheduler: a
// fixed pool of slots, FIFO-within-compatibility admission, and the
// bookkeeping the executor needs to report progress. Stateful and
// single-owner; callers serialize access (see §5 of the design notes).
package scheduler

import (
	"fmt"
	"time"

	"github.com/autoissue/autoissue/internal/classifier"
	"github.com/autoissue/autoissue/pkg/models"
)

// Scheduler holds a fixed set of slots and a FIFO queue of pending tasks.
type Scheduler struct {
	slots     []models.Slot
	queue     []models.Task
	scheduled map[int]bool

	completed int
	failed    int
}

// New allocates a Scheduler with maxSlots concurrent slots. maxSlots must
// be in [1, 10]; callers validate this via config before construction.
func New(maxSlots int) *Scheduler {
	return &Scheduler{
		slots:     make([]models.Slot, maxSlots),
		scheduled: make(map[int]bool),
	}
}

// Enqueue appends task to the queue unless its issue number has already
// been scheduled (enqueued) before. Idempotent per issue number.
func (s *Scheduler) Enqueue(task models.Task) {
	if s.scheduled[task.IssueNumber] {
		return
	}
	s.scheduled[task.IssueNumber] = true
	s.queue = append(s.queue, task)
}

// FillSlots performs one admission pass: walk the queue in FIFO order,
// admitting each task whose domain is compatible with every task currently
// occupying a slot, as long as a free slot remains. A skipped task keeps
// its queue position; later tasks are still considered. Returns the tasks
// newly admitted in this pass, in admission order.
func (s *Scheduler) FillSlots() []models.Task {
	var admitted []models.Task
	var remaining []models.Task

	for _, task := range s.queue {
		slotIdx := s.freeSlotIndex()
		if slotIdx == -1 {
			remaining = append(remaining, task)
			continue
		}
		if !s.compatibleWithRunning(task) {
			remaining = append(remaining, task)
			continue
		}

		now := time.Now()
		task.Status = models.TaskStatusRunning
		s.slots[slotIdx] = models.Slot{Task: &task, StartedAt: &now}
		admitted = append(admitted, task)
	}

	s.queue = remaining
	return admitted
}

func (s *Scheduler) freeSlotIndex() int {
	for i := range s.slots {
		if !s.slots[i].Occupied() {
			return i
		}
	}
	return -1
}

func (s *Scheduler) compatibleWithRunning(task models.Task) bool {
	for _, slot := range s.slots {
		if !slot.Occupied() {
			continue
		}
		if !classifier.AreDomainsCompatible(task.Domain, slot.Task.Domain) {
			return false
		}
	}
	return true
}

// Complete locates the occupied slot running issueNumber, frees it, and
// records the outcome. Returns false if no slot was running that issue.
func (s *Scheduler) Complete(issueNumber int, success bool) bool {
	for i := range s.slots {
		slot := &s.slots[i]
		if !slot.Occupied() || slot.Task.IssueNumber != issueNumber {
			continue
		}

		if success {
			now := time.Now()
			slot.Task.Status = models.TaskStatusCompleted
			slot.Task.CompletedAt = &now
			s.completed++
		} else {
			slot.Task.Status = models.TaskStatusFailed
			s.failed++
		}

		s.slots[i] = models.Slot{}
		return true
	}
	return false
}

// HasWork reports whether there is unfinished work: a non-empty queue or
// any occupied slot.
func (s *Scheduler) HasWork() bool {
	if len(s.queue) > 0 {
		return true
	}
	for _, slot := range s.slots {
		if slot.Occupied() {
			return true
		}
	}
	return false
}

// IsComplete is the negation of HasWork.
func (s *Scheduler) IsComplete() bool {
	return !s.HasWork()
}

// Status returns a point-in-time snapshot of the scheduler's counters.
func (s *Scheduler) Status() models.Status {
	running := 0
	for _, slot := range s.slots {
		if slot.Occupied() {
			running++
		}
	}
	return models.Status{
		Running:   running,
		Queued:    len(s.queue),
		Completed: s.completed,
		Failed:    s.failed,
		Total:     len(s.scheduled),
	}
}

// Summary returns the end-of-session report.
func (s *Scheduler) Summary() models.Summary {
	denom := s.completed + s.failed
	rate := 0.0
	if denom > 0 {
		rate = float64(s.completed) / float64(denom) * 100
	}
	return models.Summary{Completed: s.completed, Failed: s.failed, SuccessRate: rate}
}

// BlockReasons explains, for each queued task, why it cannot be admitted
// right now: naming the blocking running task(s) by domain, or "No free
// slots" when the queue is blocked purely on capacity.
func (s *Scheduler) BlockReasons() map[int]string {
	reasons := make(map[int]string, len(s.queue))
	for _, task := range s.queue {
		reasons[task.IssueNumber] = s.blockingReason(task)
	}
	return reasons
}

func (s *Scheduler) blockingReason(task models.Task) string {
	for _, slot := range s.slots {
		if !slot.Occupied() {
			continue
		}
		if classifier.AreDomainsCompatible(task.Domain, slot.Task.Domain) {
			continue
		}
		if slot.Task.Domain == models.DomainDatabase || task.Domain == models.DomainDatabase {
			return fmt.Sprintf("Blocked by database task #%d", slot.Task.IssueNumber)
		}
		if slot.Task.Domain == models.DomainUnknown || task.Domain == models.DomainUnknown {
			return fmt.Sprintf("Blocked by unknown task #%d", slot.Task.IssueNumber)
		}
		return fmt.Sprintf("Blocked by %s task #%d (same domain)", slot.Task.Domain, slot.Task.IssueNumber)
	}
	return "No free slots"
}

// Queue exposes a read-only copy of the current FIFO queue, for diagnostic
// output.
func (s *Scheduler) Queue() []models.Task {
	out := make([]models.Task, len(s.queue))
	copy(out, s.queue)
	return out
}

// Running exposes a read-only copy of the currently occupied slots' tasks.
func (s *Scheduler) Running() []models.Task {
	var out []models.Task
	for _, slot := range s.slots {
		if slot.Occupied() {
			out = append(out, *slot.Task)
		}
	}
	return out
}
