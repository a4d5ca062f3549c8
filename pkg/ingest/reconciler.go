package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/store"
)

// Reconciler sweeps for requests that were durably recorded but never
// routed, which happens when the intake publish fails after the store write
// succeeded. Requests older than the grace period with no delivery log get
// their routing event re-published from the stored record. The dispatcher's
// upsert semantics make the sweep safe to overlap with a late-arriving
// original event.
type Reconciler struct {
	store     store.Store
	publisher bus.Publisher
	interval  time.Duration
	grace     time.Duration
	logger    *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerInterval sets how often the sweep runs.
func WithReconcilerInterval(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithReconcilerGrace sets how old an unrouted request must be before it is
// re-published. The grace period keeps the sweep from racing submissions
// whose intake event is still in flight.
func WithReconcilerGrace(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithReconcilerLogger sets the logger for the Reconciler.
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReconciler creates a reconciliation sweep over the given store and
// publisher.
func NewReconciler(st store.Store, publisher bus.Publisher, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:     st,
		publisher: publisher,
		interval:  time.Minute,
		grace:     2 * time.Minute,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep runs one reconciliation pass and returns how many events were
// re-published. Publish failures are logged and skipped; the next pass
// picks the request up again.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	requests, err := r.store.ListUnroutedRequests(ctx, time.Now().Add(-r.grace))
	if err != nil {
		return 0, err
	}

	published := 0
	for _, req := range requests {
		event := notification.NewEvent(req)
		if err := r.publisher.Publish(ctx, bus.TopicIntake, req.RecipientID, event); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "Failed to re-publish intake event",
				slog.String("request_id", req.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		published++
		r.logger.LogAttrs(ctx, slog.LevelWarn, "Re-published stuck notification request",
			slog.String("request_id", req.ID.String()),
			slog.String("recipient_id", req.RecipientID),
			slog.Time("created_at", req.CreatedAt),
		)
	}

	return published, nil
}

// Run returns a function suitable for errgroup that sweeps on the
// configured interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) func() error {
	return func() error {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := r.Sweep(ctx); err != nil {
					r.logger.LogAttrs(ctx, slog.LevelError, "Reconciliation sweep failed",
						slog.Any("error", err),
					)
				}
			}
		}
	}
}
