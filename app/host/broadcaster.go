package host

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/lysyi3m/trip-cards/app/widget"
)

var ErrNoListeners = errors.New("no listeners for session")

// Broadcaster is the in-process event bus behind the custom event primitive.
// Subscribers are the server-sent event streams of a session.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[string]map[int]chan widget.BroadcastEvent
	nextID  int
	bufSize int
}

func NewBroadcaster(bufSize int) *Broadcaster {
	return &Broadcaster{
		subs:    make(map[string]map[int]chan widget.BroadcastEvent),
		bufSize: bufSize,
	}
}

// Subscribe returns a stream of events for session and a cancel func that
// closes it.
func (b *Broadcaster) Subscribe(session string) (<-chan widget.BroadcastEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan widget.BroadcastEvent, b.bufSize)
	if b.subs[session] == nil {
		b.subs[session] = make(map[int]chan widget.BroadcastEvent)
	}
	b.subs[session][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.subs[session], id)
			if len(b.subs[session]) == 0 {
				delete(b.subs, session)
			}
			close(ch)
		})
	}
}

// BroadcastEvent never blocks; a subscriber with a full buffer misses the
// event. With nobody listening the primitive counts as unavailable.
func (b *Broadcaster) BroadcastEvent(ev widget.BroadcastEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subs[ev.Session]
	if len(subs) == 0 {
		return ErrNoListeners
	}

	for id, ch := range subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("Event subscriber is slow, dropping event", "session", ev.Session, "subscriber", id, "type", ev.Type)
		}
	}
	return nil
}

func (b *Broadcaster) Listeners(session string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[session])
}
