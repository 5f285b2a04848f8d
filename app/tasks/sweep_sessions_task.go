package tasks

import (
	"context"
	"log/slog"
	"time"
)

type SweepSessionsTask struct {
	Task
	sessions SessionSweeper
}

func NewSweepSessionsTask(sessions SessionSweeper) *SweepSessionsTask {
	task := NewTask(TaskTypeSweepSessions, "")
	task.MaxRetries = 0

	return &SweepSessionsTask{
		Task:     task,
		sessions: sessions,
	}
}

func (t *SweepSessionsTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	swept := t.sessions.Sweep(time.Now())
	if swept > 0 {
		slog.Info("Idle sessions released", "count", swept, "remaining", t.sessions.Len())
	}
	return nil
}
