package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// BlockNextSearchTask tells the backend to swallow the agent's next search of
// the same kind after a selection. A late block is worse than none, so it is
// never retried.
type BlockNextSearchTask struct {
	Task
	target  string
	backend SearchBlocker
}

func NewBlockNextSearchTask(session, target string, backend SearchBlocker) *BlockNextSearchTask {
	task := NewTask(TaskTypeBlockNextSearch, session)
	task.MaxRetries = 0

	return &BlockNextSearchTask{
		Task:    task,
		target:  target,
		backend: backend,
	}
}

func (t *BlockNextSearchTask) Execute(ctx context.Context) error {
	if err := t.backend.BlockNextSearch(ctx, t.target); err != nil {
		return fmt.Errorf("failed to block next %s search: %w", t.target, err)
	}

	slog.Debug("Next search blocked", "session", t.Session, "target", t.target, "duration", t.Elapsed())
	return nil
}
