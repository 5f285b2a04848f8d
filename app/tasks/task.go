package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeBlockNextSearch  TaskType = "block_next_search"
	TaskTypeRecordCommitment TaskType = "record_commitment"
	TaskTypeSweepSessions    TaskType = "sweep_sessions"
)

const DefaultMaxRetries = 3

// TaskInterface is a unit of background work. Concrete tasks embed Task,
// which supplies Info.
type TaskInterface interface {
	Execute(ctx context.Context) error
	Info() *Task
}

// Task is the bookkeeping shared by every task: identity, the session it
// works for (empty for housekeeping) and retry accounting.
type Task struct {
	ID         string
	Type       TaskType
	Session    string
	Retries    int
	MaxRetries int
	startedAt  time.Time
}

func NewTask(taskType TaskType, session string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Session:    session,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) Info() *Task { return t }

// Begin marks the start of an attempt.
func (t *Task) Begin() {
	t.startedAt = time.Now()
}

// Elapsed is the time since the current attempt began.
func (t *Task) Elapsed() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return time.Since(t.startedAt)
}

// Retry consumes one retry and reports whether the task may run again.
func (t *Task) Retry() bool {
	if t.Retries >= t.MaxRetries {
		return false
	}
	t.Retries++
	return true
}

func (t *Task) LogAttrs() []any {
	attrs := []any{"type", string(t.Type), "id", t.ID, "retry_count", t.Retries}
	if t.Session != "" {
		attrs = append(attrs, "session", t.Session)
	}
	return attrs
}
