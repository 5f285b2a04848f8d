package widget

import "sync"

// Feed holds the latest host push and fans change events out to subscribers.
// A feed that never receives a push stays absent; that is not an error.
type Feed[T Identifiable] struct {
	mu      sync.RWMutex
	current *Snapshot[T]
	subs    map[int]func(Snapshot[T])
	nextSub int

	// serializes Publish so subscribers see pushes in arrival order
	pushMu sync.Mutex
}

func NewFeed[T Identifiable]() *Feed[T] {
	return &Feed[T]{subs: make(map[int]func(Snapshot[T]))}
}

func (f *Feed[T]) Current() (Snapshot[T], bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.current == nil {
		return Snapshot[T]{}, false
	}
	return *f.current, true
}

// OnChange registers cb for every subsequent push and returns its unsubscribe
// func. The callback is not invoked for the value already present.
func (f *Feed[T]) OnChange(cb func(Snapshot[T])) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = cb
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *Feed[T]) Publish(s Snapshot[T]) {
	f.pushMu.Lock()
	defer f.pushMu.Unlock()

	f.mu.Lock()
	f.current = &s
	callbacks := make([]func(Snapshot[T]), 0, len(f.subs))
	for _, cb := range f.subs {
		callbacks = append(callbacks, cb)
	}
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(s)
	}
}
