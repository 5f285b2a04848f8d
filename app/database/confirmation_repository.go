package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lysyi3m/trip-cards/app/widget"
)

// ConfirmationRepository persists the payment gate's ledger.
type ConfirmationRepository struct {
	db *DB
}

func NewConfirmationRepository(db *DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// Get returns nil, nil when the checkout has never been confirmed.
func (r *ConfirmationRepository) Get(ctx context.Context, ctxID string) (*widget.LedgerEntry, error) {
	var e widget.LedgerEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT ctx_id, flow, payment_intent_id, status, booking_reference, last_error
		FROM confirmations
		WHERE ctx_id = ?
	`, ctxID).Scan(&e.CtxID, &e.Flow, &e.PaymentIntentID, &e.Status, &e.BookingReference, &e.LastError)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmation: %w", err)
	}

	return &e, nil
}

func (r *ConfirmationRepository) Save(ctx context.Context, e widget.LedgerEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO confirmations (ctx_id, flow, payment_intent_id, status, booking_reference, last_error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ctx_id) DO UPDATE SET
			flow = excluded.flow,
			payment_intent_id = excluded.payment_intent_id,
			status = excluded.status,
			booking_reference = excluded.booking_reference,
			last_error = excluded.last_error,
			updated_at = CURRENT_TIMESTAMP
	`, e.CtxID, e.Flow, e.PaymentIntentID, e.Status, e.BookingReference, e.LastError)

	if err != nil {
		return fmt.Errorf("failed to save confirmation: %w", err)
	}

	return nil
}

func (r *ConfirmationRepository) ListByStatus(ctx context.Context, status string) ([]widget.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ctx_id, flow, payment_intent_id, status, booking_reference, last_error
		FROM confirmations
		WHERE status = ?
		ORDER BY updated_at DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	defer rows.Close()

	var entries []widget.LedgerEntry
	for rows.Next() {
		var e widget.LedgerEntry
		if err := rows.Scan(&e.CtxID, &e.Flow, &e.PaymentIntentID, &e.Status, &e.BookingReference, &e.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating confirmations: %w", err)
	}

	return entries, nil
}
