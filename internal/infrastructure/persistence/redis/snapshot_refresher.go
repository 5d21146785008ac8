package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/progression"
	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REFRESHER
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRefresher keeps the read-side snapshot cache in step with committed
// progression changes. It listens on the event bus; every event carries the
// user id, and by the time it is published the transaction has committed, so
// re-reading the store yields the fresh state. Refreshing is best effort: a
// cache outage degrades reads to the store, never event processing.
type SnapshotRefresher struct {
	cache        *ProgressionCache
	progressions progression.Repository
	breaker      *circuitbreaker.CircuitBreaker
	timeout      time.Duration
	logger       *slog.Logger
}

// NewSnapshotRefresher creates a refresher over the given cache and store.
func NewSnapshotRefresher(cache *ProgressionCache, progressions progression.Repository, logger *slog.Logger) *SnapshotRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "snapshot_refresher"))

	return &SnapshotRefresher{
		cache:        cache,
		progressions: progressions,
		breaker: circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}),
		timeout: 2 * time.Second,
		logger:  log,
	}
}

// Start subscribes the refresher to every event on the bus.
func (r *SnapshotRefresher) Start(bus shared.EventBus) error {
	return bus.SubscribeAll(func(event shared.Event) error {
		r.refresh(event.AggregateID())
		return nil
	})
}

func (r *SnapshotRefresher) refresh(userID string) {
	if userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		state, err := r.progressions.Get(ctx, userID)
		if err != nil {
			if shared.IsNotFound(err) {
				// State vanished underneath the event; drop the stale entry.
				return r.cache.Invalidate(ctx, userID)
			}
			return err
		}
		return r.cache.SetSnapshot(ctx, state)
	})
	if err != nil {
		r.logger.Warn("snapshot refresh failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
