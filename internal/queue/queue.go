// Package queue provides the background task queue used to run pipeline jobs
// outside the request thread. Delivery is at-least-once: a crashed worker
// leaves the task claimed and a re-enqueue produces a second run.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskProcessUpload is the task name handled by the upload worker.
const TaskProcessUpload = "process_upload"

var (
	// ErrUnavailable marks enqueue failures caused by the queue backend
	// being unreachable. Callers surface it distinctly from pipeline
	// failures.
	ErrUnavailable = errors.New("queue: unavailable")

	ErrTaskNotFound = errors.New("queue: task not found")
)

// State is the lifecycle state of a queued task.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Task is one unit of background work.
type Task struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Payload   []byte    `bson:"payload" json:"payload"`
	State     State     `bson:"state" json:"state"`
	LastError string    `bson:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ProcessUploadPayload is the payload of a TaskProcessUpload task.
type ProcessUploadPayload struct {
	UploadID string `json:"upload_id"`
	Path     string `json:"path"`
	UserID   string `json:"user_id"`
	Language string `json:"language"`
}

// NewTask builds a pending task with a fresh id and a JSON-encoded payload.
func NewTask(name string, payload any) (*Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.NewString(),
		Name:      name,
		Payload:   data,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Queue enqueues and claims tasks.
type Queue interface {
	// Enqueue persists a pending task and returns immediately. It never
	// blocks on task execution; backend failures wrap ErrUnavailable.
	Enqueue(ctx context.Context, t *Task) error

	// Dequeue atomically claims up to limit pending tasks, moving them to
	// StateRunning. An empty result means no work is ready.
	Dequeue(ctx context.Context, limit int) ([]*Task, error)

	// Complete marks a claimed task done.
	Complete(ctx context.Context, id string) error

	// Fail marks a claimed task failed with the cause.
	Fail(ctx context.Context, id, cause string) error
}
