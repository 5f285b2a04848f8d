package widget

import (
	"context"
	"time"
)

type Primitive string

const (
	PrimitiveFollowUp    Primitive = "sendFollowUpMessage"
	PrimitiveAppendUser  Primitive = "appendUserMessage"
	PrimitiveSendMessage Primitive = "sendMessage"
	PrimitiveEvent       Primitive = "customEvent"
	PrimitiveFrame       Primitive = "postMessage"
	PrimitiveLogOnly     Primitive = "log"
)

type HostMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BroadcastEvent is what the in-process and cross-frame fallbacks carry.
type BroadcastEvent struct {
	ID      string         `json:"id"`
	Session string         `json:"session"`
	Type    string         `json:"type"`
	Kind    Kind           `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

const (
	EventSelection = "widget.selection"
	EventExpired   = "widget.expired"
	EventReset     = "widget.reset"
)

type FollowUpSender interface {
	SendFollowUpMessage(ctx context.Context, prompt string) error
}

type UserMessageAppender interface {
	AppendUserMessage(ctx context.Context, text string) error
}

type MessageSender interface {
	SendMessage(ctx context.Context, msg HostMessage) error
}

// EventBroadcaster and FrameRelay are fire-and-forget: a nil error only means
// the event was handed off.
type EventBroadcaster interface {
	BroadcastEvent(ev BroadcastEvent) error
}

type FrameRelay interface {
	PostFrameMessage(ev BroadcastEvent) error
}

// Capabilities is the set of delivery primitives a host exposes. Nil fields
// are absent.
type Capabilities struct {
	FollowUp    FollowUpSender
	AppendUser  UserMessageAppender
	SendMessage MessageSender
	Events      EventBroadcaster
	Frames      FrameRelay
}

// Detected lists available primitives in delivery order, for the diagnostic
// strip.
func (c Capabilities) Detected() []Primitive {
	var out []Primitive
	if c.FollowUp != nil {
		out = append(out, PrimitiveFollowUp)
	}
	if c.AppendUser != nil {
		out = append(out, PrimitiveAppendUser)
	}
	if c.SendMessage != nil {
		out = append(out, PrimitiveSendMessage)
	}
	if c.Events != nil {
		out = append(out, PrimitiveEvent)
	}
	if c.Frames != nil {
		out = append(out, PrimitiveFrame)
	}
	return out
}
