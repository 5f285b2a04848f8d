package database

import (
	"time"
)

// Commitment is one delivered selection as recorded for audit.
type Commitment struct {
	ID                 int64     `json:"id"`
	SessionID          string    `json:"session_id"`
	Host               string    `json:"host"`
	Kind               string    `json:"kind"`
	ItemID             string    `json:"item_id"`
	Generation         uint64    `json:"generation"`
	BlockTarget        string    `json:"block_target"`
	Message            string    `json:"message"`
	NotificationStatus string    `json:"notification_status"`
	CommittedAt        time.Time `json:"committed_at"`
}
