package queue

import (
	"context"
	"sync"
	"time"
)

var _ Queue = (*MemoryQueue)(nil)

// MemoryQueue is an in-process queue for tests and single-node development.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks []*Task
	down  bool
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// SetDown toggles simulated backend unavailability.
func (q *MemoryQueue) SetDown(down bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.down = down
}

func (q *MemoryQueue) Enqueue(_ context.Context, t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.down {
		return ErrUnavailable
	}
	cp := *t
	q.tasks = append(q.tasks, &cp)
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context, limit int) ([]*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var claimed []*Task
	for _, t := range q.tasks {
		if len(claimed) >= limit {
			break
		}
		if t.State == StatePending {
			t.State = StateRunning
			t.UpdatedAt = time.Now().UTC()
			cp := *t
			claimed = append(claimed, &cp)
		}
	}
	return claimed, nil
}

func (q *MemoryQueue) Complete(_ context.Context, id string) error {
	return q.setState(id, StateDone, "")
}

func (q *MemoryQueue) Fail(_ context.Context, id, cause string) error {
	return q.setState(id, StateFailed, cause)
}

func (q *MemoryQueue) setState(id string, state State, cause string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.ID == id {
			t.State = state
			t.LastError = cause
			t.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrTaskNotFound
}

// Find returns a snapshot of the task with the given id.
func (q *MemoryQueue) Find(id string) (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.ID == id {
			cp := *t
			return &cp, true
		}
	}
	return nil, false
}
