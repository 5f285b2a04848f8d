package widget

import (
	"sync"
	"time"
)

// OfferTimer counts down from a fixed expiry anchored at the moment a result
// batch was first loaded. Remaining time is derived from startedAt on every
// read, so a reader that was away catches up instead of drifting.
type OfferTimer struct {
	mu        sync.Mutex
	now       func() time.Time
	tick      time.Duration
	startedAt time.Time
	duration  int
	started   bool
	expired   bool
	startGen  uint64

	stopOnce sync.Once
	stop     chan struct{}
}

func NewOfferTimer(now func() time.Time) *OfferTimer {
	if now == nil {
		now = time.Now
	}
	return &OfferTimer{
		now:  now,
		tick: time.Second,
		stop: make(chan struct{}),
	}
}

func (t *OfferTimer) Start(durationSeconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startedAt = t.now()
	t.duration = durationSeconds
	t.started = true
	t.expired = false
	t.startGen++
}

func (t *OfferTimer) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *OfferTimer) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

func (t *OfferTimer) RemainingSeconds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// Expired stays true once observed until the next Start, even if the clock
// moves backwards.
func (t *OfferTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiredLocked()
}

func (t *OfferTimer) remainingLocked() int {
	if !t.started || t.expired {
		return 0
	}
	elapsed := t.now().Sub(t.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(0, t.duration-int(elapsed/time.Second))
}

func (t *OfferTimer) expiredLocked() bool {
	if !t.started {
		return false
	}
	if !t.expired && t.remainingLocked() <= 0 {
		t.expired = true
	}
	return t.expired
}

// Watch polls the timer once per tick and calls onExpire once for every batch
// that runs out. It returns immediately; the goroutine ends on Stop.
func (t *OfferTimer) Watch(onExpire func()) {
	go func() {
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()

		var fired uint64
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				t.mu.Lock()
				gen := t.startGen
				expired := t.expiredLocked()
				t.mu.Unlock()

				if expired && gen != fired {
					fired = gen
					onExpire()
				}
			}
		}
	}()
}

// Stop releases the ticker behind Watch. Reads keep working afterwards.
func (t *OfferTimer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}
