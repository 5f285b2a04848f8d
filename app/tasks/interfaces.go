package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/trip-cards/app/widget"
)

// TaskSchedulerInterface is what the rest of the service sees of the worker
// pool.
//
//	scheduler := NewScheduler(registry, backend, commitments, interval, workers)
//	scheduler.Start()
//	defer scheduler.Stop()
//	factory.OnCommit = scheduler.OnCommit
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	OnCommit(ev widget.CommitEvent)
}

type SearchBlocker interface {
	BlockNextSearch(ctx context.Context, target string) error
}

type SessionSweeper interface {
	Sweep(now time.Time) int
	Len() int
}
