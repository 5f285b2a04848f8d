package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/lysyi3m/trip-cards/app/booking"
	"github.com/lysyi3m/trip-cards/app/database"
	"github.com/lysyi3m/trip-cards/app/host"
	"github.com/lysyi3m/trip-cards/app/widget"
)

type BackendInterface interface {
	FetchResults(ctx context.Context, kind string, query url.Values) ([]byte, error)
	CheckoutStatus(ctx context.Context, ctxID string) (booking.CheckoutStatus, error)
}

var _ BackendInterface = (*booking.Client)(nil)

type SessionRegistry interface {
	Open(kind widget.Kind, host string) (widget.Handle, error)
	Get(id string) (widget.Handle, bool)
	Close(id string) bool
	Len() int
}

var _ SessionRegistry = (*widget.Registry)(nil)

// CheckoutLedger lists gate ledger entries, e.g. paid_unconfirmed checkouts
// that need support follow-up.
type CheckoutLedger interface {
	ListByStatus(ctx context.Context, status string) ([]widget.LedgerEntry, error)
}

var _ CheckoutLedger = (*database.ConfirmationRepository)(nil)

type CommitmentHistory interface {
	ListBySession(ctx context.Context, sessionID string) ([]database.Commitment, error)
}

var _ CommitmentHistory = (*database.CommitmentRepository)(nil)

type Handler struct {
	sessions SessionRegistry
	backend  BackendInterface
	ledger   CheckoutLedger
	history  CommitmentHistory
	events   *host.Broadcaster
	profiles *host.ProfileCache
}

type openSessionRequest struct {
	Kind widget.Kind `json:"kind" binding:"required"`
	Host string      `json:"host"`
}

type feedRequest struct {
	Output   json.RawMessage `json:"output" binding:"required"`
	Metadata json.RawMessage `json:"metadata"`
}

type fetchRequest struct {
	Query    map[string]string `json:"query"`
	Metadata json.RawMessage   `json:"metadata"`
}

type commitRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

type decideRequest struct {
	Tool   string          `json:"tool" binding:"required"`
	Result json.RawMessage `json:"result"`
}
