package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"goalfin/internal/amqp"
	"goalfin/internal/core"
)

// Analytics is the slice of the analytics service the worker drives.
type Analytics interface {
	GenerateDailySnapshots(ctx context.Context, userID string) ([]core.Snapshot, error)
	SeedHistory(ctx context.Context, userID string, days int) ([]core.Snapshot, error)
}

// UserLister enumerates users for the scheduled daily run.
type UserLister interface {
	UserIDs(ctx context.Context) ([]string, error)
}

// Publisher enqueues snapshot requests for asynchronous processing.
type Publisher interface {
	PublishSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequest) error
}

// SnapshotWorker processes snapshot requests from the queue and schedules
// the nightly run that fans one request out per user.
type SnapshotWorker struct {
	analytics Analytics
	users     UserLister
	publisher Publisher
}

func NewSnapshotWorker(analytics Analytics, users UserLister, publisher Publisher) *SnapshotWorker {
	return &SnapshotWorker{
		analytics: analytics,
		users:     users,
		publisher: publisher,
	}
}

// HandleSnapshotRequest processes a single request from AMQP.
func (w *SnapshotWorker) HandleSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequest) error {
	switch msg.Kind {
	case amqp.KindDaily:
		created, err := w.analytics.GenerateDailySnapshots(ctx, msg.UserID)
		if err != nil {
			return fmt.Errorf("generate daily snapshots: %w", err)
		}
		slog.InfoContext(ctx, "Daily snapshot request handled",
			"user_id", msg.UserID,
			"created", len(created))
		return nil

	case amqp.KindBackfill:
		created, err := w.analytics.SeedHistory(ctx, msg.UserID, msg.Days)
		if err != nil {
			return fmt.Errorf("seed history: %w", err)
		}
		slog.InfoContext(ctx, "Backfill request handled",
			"user_id", msg.UserID,
			"days", msg.Days,
			"created", len(created))
		return nil

	default:
		return fmt.Errorf("unknown request kind %q", msg.Kind)
	}
}

// EnqueueDailyRun publishes one daily request per registered user. Errors
// on individual users are logged and counted, not fatal, so one bad
// publish does not starve the rest.
func (w *SnapshotWorker) EnqueueDailyRun(ctx context.Context) error {
	userIDs, err := w.users.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	published := 0
	failed := 0
	for _, userID := range userIDs {
		if err := w.publisher.PublishSnapshotRequest(ctx, amqp.NewDailyRequest(userID)); err != nil {
			slog.ErrorContext(ctx, "Failed to enqueue daily snapshot", "user_id", userID, "error", err)
			failed++
			continue
		}
		published++
	}

	slog.InfoContext(ctx, "Daily snapshot run enqueued",
		"users", len(userIDs),
		"published", published,
		"failed", failed)

	if failed > 0 && published == 0 {
		return fmt.Errorf("all %d daily publishes failed", failed)
	}
	return nil
}

// RunScheduler fires EnqueueDailyRun once a day at the given hour until
// ctx is done.
func (w *SnapshotWorker) RunScheduler(ctx context.Context, hour int) error {
	for {
		next := NextRun(time.Now(), hour)
		slog.InfoContext(ctx, "Next daily snapshot run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if err := w.EnqueueDailyRun(ctx); err != nil {
				slog.ErrorContext(ctx, "Daily snapshot run failed", "error", err)
			}
		}
	}
}

// NextRun returns the next occurrence of hour o'clock strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
