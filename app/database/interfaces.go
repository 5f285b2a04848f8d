package database

import (
	"context"

	"github.com/lysyi3m/trip-cards/app/widget"
)

type ConfirmationStore interface {
	widget.ConfirmationLedger
	ListByStatus(ctx context.Context, status string) ([]widget.LedgerEntry, error)
}

type CommitmentStore interface {
	Record(ctx context.Context, c Commitment) error
	ListBySession(ctx context.Context, sessionID string) ([]Commitment, error)
}
