package widget

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lysyi3m/trip-cards/app/booking"
)

// PaymentSession is the payment card. Its single item is the checkout, and
// committing to it goes through the confirmation gate rather than a plain
// notification.
type PaymentSession struct {
	*Session[Payment]
	gate   *ConfirmationGate
	result *GateResult
}

func NewPaymentSession(cfg SessionConfig[Payment], gate *ConfirmationGate) *PaymentSession {
	cfg.Kind = KindPayment
	cfg.Normalize = NormalizePayment
	cfg.Build = PaymentMessage
	cfg.WatchMeta = []string{"ctx_id"}
	cfg.Timer = nil
	p := &PaymentSession{Session: NewSession(cfg), gate: gate}
	p.onReset = func() { p.result = nil }
	return p
}

// Commit is not how a payment is completed; see Confirm.
func (p *PaymentSession) Commit(_ context.Context, _ string) (View, error) {
	return p.View(), ErrWrongKind
}

func (p *PaymentSession) checkout() (Payment, error) {
	items := p.store.Effective()
	if len(items) == 0 {
		return Payment{}, ErrUnknownItem
	}
	return items[0], nil
}

// Checkout returns the checkout currently shown on the card.
func (p *PaymentSession) Checkout() (Payment, bool) {
	c, err := p.checkout()
	return c, err == nil
}

// Confirmed reports whether the checkout on the card has already cleared the
// gate.
func (p *PaymentSession) Confirmed(ctx context.Context) (bool, error) {
	checkout, err := p.checkout()
	if err != nil {
		return false, err
	}
	return p.gate.Confirmed(ctx, checkout.CtxID)
}

func (p *PaymentSession) PrepareIntent(ctx context.Context) (booking.PaymentIntent, error) {
	if p.Closed() {
		return booking.PaymentIntent{}, ErrSessionClosed
	}
	checkout, err := p.checkout()
	if err != nil {
		return booking.PaymentIntent{}, err
	}
	return p.gate.Prepare(ctx, checkout)
}

// Confirm hands the processor's result to the gate. The card shows Sending
// for the whole call and a second confirm is refused until it returns. A
// processor failure leaves the commitment untouched.
func (p *PaymentSession) Confirm(ctx context.Context, res PaymentResult) (GateResult, View, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return GateResult{}, View{}, ErrSessionClosed
	}
	if p.notification.Status == Sending {
		p.mu.Unlock()
		return GateResult{}, p.View(), ErrConfirmInFlight
	}
	checkout, err := p.checkout()
	if err != nil {
		p.mu.Unlock()
		return GateResult{}, p.View(), err
	}
	prev := p.notification
	p.notification = NotificationState{Status: Sending, Generation: prev.Generation, UpdatedAt: time.Now()}
	p.lastActive = time.Now()
	p.mu.Unlock()

	result, err := p.gate.Confirm(context.WithoutCancel(ctx), p.cfg.Notifier, checkout, res)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return result, View{}, err
	}
	if err != nil || result.Outcome == OutcomePaymentFailed {
		p.notification = prev
		p.mu.Unlock()
		return result, p.View(), err
	}

	c, commitErr := p.store.Commit(checkout.CtxID)
	if commitErr != nil && (!errors.Is(commitErr, ErrAlreadyCommitted) || c.Item.CtxID != checkout.CtxID) {
		// a different checkout arrived while the gate was running
		if p.notification.Status == Sending {
			p.notification = NotificationState{Status: NotSent, UpdatedAt: time.Now()}
		}
		p.mu.Unlock()
		slog.Info("Discarding gate result for replaced checkout", "session", p.cfg.ID, "ctx_id", checkout.CtxID, "outcome", string(result.Outcome))
		return result, p.View(), nil
	}
	firstCommit := commitErr == nil
	result.Notification.Generation = c.Generation
	p.notification = result.Notification
	p.attempted = c.Generation
	p.result = &result
	p.mu.Unlock()

	if firstCommit {
		p.cfg.Metrics.commit(KindPayment, "committed")
	}
	if p.cfg.OnCommit != nil && result.Outcome != OutcomeAlreadyConfirmed {
		p.cfg.OnCommit(CommitEvent{
			Session:      p.cfg.ID,
			Host:         p.cfg.Host,
			Kind:         KindPayment,
			ItemID:       checkout.CtxID,
			Generation:   c.Generation,
			BlockTarget:  checkoutTarget(checkout.Flow),
			Message:      PaymentMessage(checkout, nil).Text,
			Notification: result.Notification,
			CommittedAt:  c.CommittedAt,
		})
	}
	return result, p.View(), nil
}

func (p *PaymentSession) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := p.viewLocked()
	if p.result != nil {
		r := *p.result
		v.Payment = &r
	}
	v.CanCommit = !p.closed && !v.Empty && p.notification.Status != Sending &&
		(p.result == nil || p.result.Outcome == OutcomePaidUnconfirmed)
	return v
}

func checkoutTarget(flow string) string {
	if flow == "flight" {
		return booking.TargetFlightCheckout
	}
	return booking.TargetHotelCheckout
}
