package widget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotSent NotificationStatus = "not_sent"
	Sending NotificationStatus = "sending"
	Sent    NotificationStatus = "sent"
	Failed  NotificationStatus = "failed"
)

type NotificationState struct {
	Status     NotificationStatus `json:"status"`
	Primitive  Primitive          `json:"primitive,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Generation uint64             `json:"generation,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Message is what gets delivered to the agent once the user commits.
type Message struct {
	Kind       Kind
	Text       string
	Structured map[string]any
}

type MessageBuilder[T Identifiable] func(item T, meta map[string]string) Message

type Attempt struct {
	Primitive Primitive
	Err       error
}

type Delivery struct {
	Primitive  Primitive
	Optimistic bool
	Attempts   []Attempt
}

// Notifier walks the host primitives in preference order and stops at the
// first one that does not fail. The log-only fallback always succeeds.
type Notifier struct {
	caps    Capabilities
	session string
	metrics *Metrics
	now     func() time.Time
}

func NewNotifier(caps Capabilities, session string, metrics *Metrics) *Notifier {
	return &Notifier{
		caps:    caps,
		session: session,
		metrics: metrics,
		now:     time.Now,
	}
}

func (n *Notifier) Capabilities() Capabilities {
	return n.caps
}

func (n *Notifier) Deliver(ctx context.Context, msg Message) Delivery {
	var d Delivery

	try := func(p Primitive, fn func() error) bool {
		err := guard(fn)
		d.Attempts = append(d.Attempts, Attempt{Primitive: p, Err: err})
		if err != nil {
			slog.Warn("Delivery primitive failed", "session", n.session, "primitive", string(p), "error", err)
			return false
		}
		d.Primitive = p
		return true
	}

	switch {
	case n.caps.FollowUp != nil && try(PrimitiveFollowUp, func() error {
		return n.caps.FollowUp.SendFollowUpMessage(ctx, msg.Text)
	}):
	case n.caps.AppendUser != nil && try(PrimitiveAppendUser, func() error {
		return n.caps.AppendUser.AppendUserMessage(ctx, msg.Text)
	}):
	case n.caps.SendMessage != nil && try(PrimitiveSendMessage, func() error {
		return n.caps.SendMessage.SendMessage(ctx, HostMessage{Role: "user", Content: msg.Text})
	}):
	case n.caps.Events != nil && try(PrimitiveEvent, func() error {
		return n.caps.Events.BroadcastEvent(n.event(msg))
	}):
		d.Optimistic = true
	case n.caps.Frames != nil && try(PrimitiveFrame, func() error {
		return n.caps.Frames.PostFrameMessage(n.event(msg))
	}):
		d.Optimistic = true
	default:
		slog.Info("No host delivery primitive available, message logged only", "session", n.session, "kind", string(msg.Kind), "text", msg.Text)
		d.Primitive = PrimitiveLogOnly
		d.Attempts = append(d.Attempts, Attempt{Primitive: PrimitiveLogOnly})
	}

	n.metrics.notification(msg.Kind, d.Primitive, Sent)
	return d
}

func (n *Notifier) event(msg Message) BroadcastEvent {
	return BroadcastEvent{
		ID:      uuid.NewString(),
		Session: n.session,
		Type:    EventSelection,
		Kind:    msg.Kind,
		Text:    msg.Text,
		Payload: msg.Structured,
		At:      n.now(),
	}
}

// Notify builds the message for item and delivers it.
func Notify[T Identifiable](ctx context.Context, n *Notifier, item T, meta map[string]string, build MessageBuilder[T]) NotificationState {
	d := n.Deliver(ctx, build(item, meta))
	return NotificationState{
		Status:    Sent,
		Primitive: d.Primitive,
		UpdatedAt: n.now(),
	}
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("primitive panicked: %v", r)
		}
	}()
	return fn()
}
