package database

import (
	"context"
	"fmt"
)

// CommitmentRepository keeps an audit trail of delivered selections.
type CommitmentRepository struct {
	db *DB
}

func NewCommitmentRepository(db *DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

// Record is idempotent per (session, generation).
func (r *CommitmentRepository) Record(ctx context.Context, c Commitment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO commitments (session_id, host, kind, item_id, generation, block_target, message, notification_status, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, generation) DO UPDATE SET
			notification_status = excluded.notification_status
	`, c.SessionID, c.Host, c.Kind, c.ItemID, int64(c.Generation), c.BlockTarget, c.Message, c.NotificationStatus, c.CommittedAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to record commitment: %w", err)
	}

	return nil
}

func (r *CommitmentRepository) ListBySession(ctx context.Context, sessionID string) ([]Commitment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, host, kind, item_id, generation, block_target, message, notification_status, committed_at
		FROM commitments
		WHERE session_id = ?
		ORDER BY committed_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	defer rows.Close()

	var commitments []Commitment
	for rows.Next() {
		var c Commitment
		var generation int64
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Host, &c.Kind, &c.ItemID, &generation,
			&c.BlockTarget, &c.Message, &c.NotificationStatus, &c.CommittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan commitment: %w", err)
		}
		c.Generation = uint64(generation)
		commitments = append(commitments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commitments: %w", err)
	}

	return commitments, nil
}
