package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/trip-cards/app/database"
	"github.com/lysyi3m/trip-cards/app/widget"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sessions    SessionSweeper
	backend     SearchBlocker
	commitments database.CommitmentStore
	interval    time.Duration
	workerCount int
	retryUnit   time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(sessions SessionSweeper, backend SearchBlocker, commitments database.CommitmentStore,
	interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sessions:    sessions,
		backend:     backend,
		commitments: commitments,
		interval:    interval,
		workerCount: workerCount,
		retryUnit:   time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.sessions == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(NewSweepSessionsTask(s.sessions)); err != nil {
					slog.Warn("Failed to enqueue SweepSessionsTask", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// OnCommit fans a delivered commitment out into background work. It never
// blocks the session that called it.
func (s *Scheduler) OnCommit(ev widget.CommitEvent) {
	if s.commitments != nil {
		if err := s.EnqueueTask(NewRecordCommitmentTask(ev, s.commitments)); err != nil {
			slog.Warn("Failed to enqueue RecordCommitmentTask", "session", ev.Session, "error", err)
		}
	}

	if ev.BlockTarget != "" && s.backend != nil {
		if err := s.EnqueueTask(NewBlockNextSearchTask(ev.Session, ev.BlockTarget, s.backend)); err != nil {
			slog.Warn("Failed to enqueue BlockNextSearchTask", "session", ev.Session, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	info := task.Info()
	info.Begin()

	taskCtx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", append(info.LogAttrs(), "worker_id", workerID, "error", err)...)

	if !info.Retry() {
		if info.MaxRetries > 0 {
			slog.Error("Task failed after maximum retries", append(info.LogAttrs(), "max_retries", info.MaxRetries, "last_error", err)...)
		}
		return
	}

	retryDelay := min(s.retryDelay(info.Retries), 30*time.Second)
	slog.Warn("Task retry scheduled", append(info.LogAttrs(), "max_retries", info.MaxRetries, "delay", retryDelay.String())...)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", info.LogAttrs()...)
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", append(info.LogAttrs(), "error", retryErr)...)
			}
		}
	}()
}

func (s *Scheduler) retryDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * s.retryUnit
}
