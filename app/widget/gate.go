package widget

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/lysyi3m/trip-cards/app/booking"
)

var ErrCheckoutConfirmed = errors.New("checkout already confirmed")

type GateOutcome string

const (
	OutcomeBooked           GateOutcome = "booked"
	OutcomePaidUnconfirmed  GateOutcome = "paid_unconfirmed"
	OutcomePaymentFailed    GateOutcome = "payment_failed"
	OutcomeAlreadyConfirmed GateOutcome = "already_confirmed"
)

const (
	LedgerPaid            = "paid"
	LedgerBooked          = "booked"
	LedgerPaidUnconfirmed = "paid_unconfirmed"
)

type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, flow, ctxID string) (booking.PaymentIntent, error)
	ConfirmBooking(ctx context.Context, flow, ctxID, paymentIntentID string) (booking.Confirmation, error)
}

type LedgerEntry struct {
	CtxID            string `json:"ctx_id"`
	Flow             string `json:"flow"`
	PaymentIntentID  string `json:"payment_intent_id"`
	Status           string `json:"status"`
	BookingReference string `json:"booking_reference,omitempty"`
	LastError        string `json:"last_error,omitempty"`
}

// ConfirmationLedger persists confirmed ctx_ids. Get returns nil for unknown
// keys.
type ConfirmationLedger interface {
	Get(ctx context.Context, ctxID string) (*LedgerEntry, error)
	Save(ctx context.Context, entry LedgerEntry) error
}

// PaymentResult is what the payment processor reported to the card.
type PaymentResult struct {
	IntentID string `json:"payment_intent_id"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type GateResult struct {
	Outcome      GateOutcome       `json:"outcome"`
	Notification NotificationState `json:"notification"`
	Reference    string            `json:"booking_reference,omitempty"`
	Receipt      string            `json:"receipt,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// ConfirmationGate keys payment confirmation by ctx_id. A key enters the
// confirmed set as soon as the processor reports success and before anyone
// is notified, so a retried confirm can never book twice.
type ConfirmationGate struct {
	processor PaymentProcessor
	ledger    ConfirmationLedger
	metrics   *Metrics

	confirmed *cache.Cache
	intents   *cache.Cache

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

// keyLock serializes work on one ctx_id. It lives in the gate only while
// someone holds or waits for it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewConfirmationGate(processor PaymentProcessor, ledger ConfirmationLedger, intentTTL time.Duration, metrics *Metrics) *ConfirmationGate {
	return &ConfirmationGate{
		processor: processor,
		ledger:    ledger,
		metrics:   metrics,
		confirmed: cache.New(cache.NoExpiration, 10*time.Minute),
		intents:   cache.New(intentTTL, 10*time.Minute),
		locks:     make(map[string]*keyLock),
	}
}

// Prepare returns the payment intent for the checkout, creating it on first
// use only.
func (g *ConfirmationGate) Prepare(ctx context.Context, p Payment) (booking.PaymentIntent, error) {
	unlock := g.lock(p.CtxID)
	defer unlock()

	if v, ok := g.intents.Get(p.CtxID); ok {
		return v.(booking.PaymentIntent), nil
	}

	entry, err := g.lookup(ctx, p.CtxID)
	if err != nil {
		return booking.PaymentIntent{}, err
	}
	if entry != nil {
		return booking.PaymentIntent{CtxID: p.CtxID, ID: entry.PaymentIntentID}, ErrCheckoutConfirmed
	}

	intent, err := g.processor.CreatePaymentIntent(ctx, p.Flow, p.CtxID)
	if err != nil {
		return booking.PaymentIntent{}, err
	}
	g.intents.SetDefault(p.CtxID, intent)

	slog.Info("Payment intent created", "ctx_id", p.CtxID, "flow", p.Flow, "payment_intent", intent.ID)
	return intent, nil
}

// Confirm records a processor result for the checkout, tells the agent and
// asks the backend to book. The caller's form stays disabled until it returns;
// a concurrent confirm for the same key fails with ErrConfirmInFlight.
func (g *ConfirmationGate) Confirm(ctx context.Context, n *Notifier, p Payment, res PaymentResult) (GateResult, error) {
	unlock, ok := g.tryLock(p.CtxID)
	if !ok {
		return GateResult{}, ErrConfirmInFlight
	}
	defer unlock()

	entry, err := g.lookup(ctx, p.CtxID)
	if err != nil {
		return GateResult{}, err
	}

	if entry != nil && entry.Status == LedgerBooked {
		g.metrics.gate(OutcomeAlreadyConfirmed)
		slog.Info("Checkout already confirmed, skipping dispatch", "ctx_id", p.CtxID)
		return GateResult{
			Outcome:      OutcomeAlreadyConfirmed,
			Notification: NotificationState{Status: Sent, UpdatedAt: time.Now()},
			Reference:    entry.BookingReference,
		}, nil
	}

	if entry == nil {
		if res.Status != "succeeded" {
			g.metrics.gate(OutcomePaymentFailed)
			msg := res.Error
			if msg == "" {
				msg = fmt.Sprintf("Payment not completed. Status: %s", res.Status)
			}
			return GateResult{
				Outcome:      OutcomePaymentFailed,
				Notification: NotificationState{Status: NotSent, UpdatedAt: time.Now()},
				Error:        msg,
			}, nil
		}

		intentID := res.IntentID
		if intentID == "" {
			if v, ok := g.intents.Get(p.CtxID); ok {
				intentID = v.(booking.PaymentIntent).ID
			}
		}
		entry = &LedgerEntry{CtxID: p.CtxID, Flow: p.Flow, PaymentIntentID: intentID, Status: LedgerPaid}
		if err := g.confirmed.Add(p.CtxID, entry, cache.NoExpiration); err != nil {
			return GateResult{}, fmt.Errorf("failed to mark %s confirmed: %w", p.CtxID, err)
		}
		g.persist(ctx, *entry)
	}

	d := n.Deliver(ctx, PaymentMessage(p, nil))

	conf, err := g.processor.ConfirmBooking(ctx, p.Flow, p.CtxID, entry.PaymentIntentID)
	if err != nil {
		entry.Status = LedgerPaidUnconfirmed
		entry.LastError = err.Error()
		g.persist(ctx, *entry)
		g.metrics.gate(OutcomePaidUnconfirmed)

		slog.Error("Booking confirmation failed after payment", "ctx_id", p.CtxID, "error", err)
		return GateResult{
			Outcome: OutcomePaidUnconfirmed,
			Notification: NotificationState{
				Status:    Failed,
				Primitive: d.Primitive,
				Reason:    err.Error(),
				UpdatedAt: time.Now(),
			},
			Error: "Payment received, but the booking could not be confirmed. Please contact support.",
		}, nil
	}

	entry.Status = LedgerBooked
	entry.BookingReference = conf.Reference
	entry.LastError = ""
	g.persist(ctx, *entry)
	g.metrics.gate(OutcomeBooked)

	slog.Info("Booking confirmed", "ctx_id", p.CtxID, "reference", conf.Reference, "primitive", string(d.Primitive))
	return GateResult{
		Outcome:      OutcomeBooked,
		Notification: NotificationState{Status: Sent, Primitive: d.Primitive, UpdatedAt: time.Now()},
		Reference:    conf.Reference,
		Receipt: ConfirmationText(BookingSummary{
			Flow:      p.Flow,
			Reference: conf.Reference,
			HotelName: conf.HotelName,
			RoomName:  conf.RoomName,
			Amount:    cmp.Or(conf.Amount, p.Amount),
			Currency:  cmp.Or(conf.Currency, p.Currency),
		}),
	}, nil
}

// Confirmed reports whether ctxID is in the confirmed set.
func (g *ConfirmationGate) Confirmed(ctx context.Context, ctxID string) (bool, error) {
	entry, err := g.lookup(ctx, ctxID)
	return entry != nil, err
}

func (g *ConfirmationGate) lookup(ctx context.Context, ctxID string) (*LedgerEntry, error) {
	if v, ok := g.confirmed.Get(ctxID); ok {
		return v.(*LedgerEntry), nil
	}
	if g.ledger == nil {
		return nil, nil
	}

	entry, err := g.ledger.Get(ctx, ctxID)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation ledger: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	g.confirmed.Set(ctxID, entry, cache.NoExpiration)
	return entry, nil
}

// persist is best-effort; the in-memory set stays authoritative for this
// process if the write fails.
func (g *ConfirmationGate) persist(ctx context.Context, entry LedgerEntry) {
	if g.ledger == nil {
		return
	}
	if err := g.ledger.Save(ctx, entry); err != nil {
		slog.Error("Database error", "operation", "save_confirmation", "ctx_id", entry.CtxID, "error", err)
	}
}

func (g *ConfirmationGate) lock(ctxID string) func() {
	unlock, _ := g.acquire(ctxID, true)
	return unlock
}

func (g *ConfirmationGate) tryLock(ctxID string) (func(), bool) {
	return g.acquire(ctxID, false)
}

func (g *ConfirmationGate) acquire(ctxID string, wait bool) (func(), bool) {
	g.locksMu.Lock()
	l, ok := g.locks[ctxID]
	if !ok {
		l = &keyLock{}
		g.locks[ctxID] = l
	}
	if !wait && !l.mu.TryLock() {
		g.locksMu.Unlock()
		return nil, false
	}
	l.refs++
	g.locksMu.Unlock()

	if wait {
		l.mu.Lock()
	}
	return func() {
		l.mu.Unlock()

		g.locksMu.Lock()
		defer g.locksMu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(g.locks, ctxID)
		}
	}, true
}
