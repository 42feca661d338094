package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmslot/seamless-wallet/internal/repository"
)

// Reconciler surfaces events whose wallet transfers never completed: the
// settlement transaction committed but a later transfer transaction failed,
// leaving the event's transfer marker pending. It does not replay transfers
// on its own; operators resolve flagged events against the ledger lines.
type Reconciler struct {
	db     repository.DBTX
	events repository.EventRepository
	logger *slog.Logger

	interval time.Duration
	batch    int
}

func NewReconciler(db repository.DBTX, events repository.EventRepository, logger *slog.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{
		db:       db,
		events:   events,
		logger:   logger,
		interval: interval,
		batch:    100,
	}
}

// Run polls for stuck events until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("reconciler sweep failed", "error", err)
			}
		}
	}
}

// Sweep logs every event still marked pending. Events younger than the
// grace period are skipped: their transfers are likely still in flight.
func (r *Reconciler) Sweep(ctx context.Context) error {
	const grace = 30 * time.Second

	pending, err := r.events.ListPendingTransfers(ctx, r.db, r.batch)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-grace)
	for _, ev := range pending {
		if ev.CreatedAt.After(cutoff) {
			continue
		}
		r.logger.Warn("event transfers incomplete",
			"event_id", ev.ID,
			"message_id", ev.MessageID,
			"user_id", ev.UserID,
			"age", time.Since(ev.CreatedAt).Round(time.Second).String(),
		)
	}
	return nil
}
