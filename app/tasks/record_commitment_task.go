package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/trip-cards/app/database"
	"github.com/lysyi3m/trip-cards/app/widget"
)

type RecordCommitmentTask struct {
	Task
	event       widget.CommitEvent
	commitments database.CommitmentStore
}

func NewRecordCommitmentTask(ev widget.CommitEvent, commitments database.CommitmentStore) *RecordCommitmentTask {
	return &RecordCommitmentTask{
		Task:        NewTask(TaskTypeRecordCommitment, ev.Session),
		event:       ev,
		commitments: commitments,
	}
}

func (t *RecordCommitmentTask) Execute(ctx context.Context) error {
	ev := t.event
	err := t.commitments.Record(ctx, database.Commitment{
		SessionID:          ev.Session,
		Host:               ev.Host,
		Kind:               string(ev.Kind),
		ItemID:             ev.ItemID,
		Generation:         ev.Generation,
		BlockTarget:        ev.BlockTarget,
		Message:            ev.Message,
		NotificationStatus: string(ev.Notification.Status),
		CommittedAt:        ev.CommittedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to record commitment for %s: %w", ev.Session, err)
	}

	slog.Debug("Commitment recorded", "session", ev.Session, "item", ev.ItemID, "generation", ev.Generation)
	return nil
}
