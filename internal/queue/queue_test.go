package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestNewTask(t *testing.T) {
	task, err := NewTask(TaskProcessUpload, ProcessUploadPayload{UploadID: "u1", UserID: "demo_user"})
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.ID == "" {
		t.Error("task must get an id")
	}
	if task.State != StatePending {
		t.Errorf("State = %q, want pending", task.State)
	}

	var payload ProcessUploadPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.UploadID != "u1" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestMemoryQueueLifecycle(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	t1, _ := NewTask("a", struct{}{})
	t2, _ := NewTask("b", struct{}{})
	if err := q.Enqueue(ctx, t1); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(ctx, t2); err != nil {
		t.Fatal(err)
	}

	claimed, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 || claimed[0].ID != t1.ID {
		t.Fatalf("claimed %+v, want the first enqueued task", claimed)
	}
	if claimed[0].State != StateRunning {
		t.Errorf("State = %q, want running", claimed[0].State)
	}

	// The claimed task must not be handed out again.
	rest, _ := q.Dequeue(ctx, 10)
	if len(rest) != 1 || rest[0].ID != t2.ID {
		t.Fatalf("second dequeue = %+v, want only the second task", rest)
	}

	if err := q.Complete(ctx, t1.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := q.Find(t1.ID); got.State != StateDone {
		t.Errorf("State = %q, want done", got.State)
	}

	if err := q.Fail(ctx, t2.ID, "handler blew up"); err != nil {
		t.Fatal(err)
	}
	if got, _ := q.Find(t2.ID); got.State != StateFailed || got.LastError != "handler blew up" {
		t.Errorf("task = %+v", got)
	}
}

func TestMemoryQueueDown(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	q.SetDown(true)

	task, _ := NewTask("a", struct{}{})
	err := q.Enqueue(ctx, task)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Enqueue error = %v, want ErrUnavailable", err)
	}

	q.SetDown(false)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue after recovery error = %v", err)
	}
}

func TestMemoryQueueUnknownTask(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	if err := q.Complete(ctx, "ghost"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Complete error = %v, want ErrTaskNotFound", err)
	}
	if err := q.Fail(ctx, "ghost", "x"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Fail error = %v, want ErrTaskNotFound", err)
	}
}
