// Package orchestrator sequences the progression components for each
// incoming learning event: streak transition, xp award, level derivation,
// skill leveling, competency rollup and badge matching, all inside one
// per-user transaction with optimistic-concurrency retry.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/badge"
	"github.com/skillstream/progression-engine/internal/domain/progression"
	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/skill"
	"github.com/skillstream/progression-engine/internal/domain/streak"
	"github.com/skillstream/progression-engine/pkg/retry"
)

// TxManager runs a function inside one storage transaction. Repositories
// participating in the call pick the transaction up from the context, so
// every write of one event commits or rolls back together.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config holds orchestrator configuration.
type Config struct {
	// MaxConflictRetries bounds how often a version conflict on the same
	// user's state is retried before the failure is surfaced to the
	// delivery layer.
	MaxConflictRetries int

	// Catalog is the badge catalog to match against. Defaults to the
	// built-in catalog.
	Catalog []badge.Definition
}

// DefaultConfig returns sensible orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxConflictRetries: 5,
		Catalog:            badge.Catalog,
	}
}

// Orchestrator is the single entry point for progression events. Events for
// the same user are serialized by the optimistic-concurrency check; the
// orchestrator itself holds no mutable state.
type Orchestrator struct {
	progressions progression.Repository
	ledger       progression.EventLedger
	streaks      streak.Repository
	skills       skill.Repository
	streakEngine *streak.Engine
	tx           TxManager
	bus          shared.EventBus
	retrier      *retry.Retrier
	catalog      []badge.Definition
	now          func() time.Time
	logger       *slog.Logger
}

// New creates an Orchestrator. now is injected for deterministic calendar
// math in tests; pass timeutil.Now in production wiring.
func New(
	progressions progression.Repository,
	ledger progression.EventLedger,
	streaks streak.Repository,
	skills skill.Repository,
	streakEngine *streak.Engine,
	tx TxManager,
	bus shared.EventBus,
	cfg Config,
	now func() time.Time,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = DefaultConfig().MaxConflictRetries
	}
	if cfg.Catalog == nil {
		cfg.Catalog = badge.Catalog
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		progressions: progressions,
		ledger:       ledger,
		streaks:      streaks,
		skills:       skills,
		streakEngine: streakEngine,
		tx:           tx,
		bus:          bus,
		retrier: retry.New(
			retry.WithMaxAttempts(cfg.MaxConflictRetries),
			retry.WithInitialDelay(20*time.Millisecond),
			retry.WithMaxDelay(500*time.Millisecond),
			retry.WithJitter(0.3),
			retry.WithRetryIf(shared.IsRetryable),
		),
		catalog: cfg.Catalog,
		now:     now,
		logger:  logger.With(slog.String("component", "orchestrator")),
	}
}

// runSerialized executes fn inside a transaction and retries the whole
// attempt on version conflicts. Each attempt re-reads current state, so a
// retry never applies calculations from a stale read.
func (o *Orchestrator) runSerialized(ctx context.Context, fn func(ctx context.Context) error) error {
	return o.retrier.Do(ctx, func(ctx context.Context) error {
		return o.tx.WithinTx(ctx, fn)
	})
}

// publish sends the occurred events to the notification bus. State is
// committed by now, so publish failures are logged, never propagated.
func (o *Orchestrator) publish(events []shared.Event) {
	for _, e := range events {
		if err := o.bus.Publish(e); err != nil {
			o.logger.Warn("event publish failed",
				slog.String("event_type", string(e.EventType())),
				slog.String("user_id", e.AggregateID()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// skillSnapshots loads the user's skill levels for badge matching.
func (o *Orchestrator) skillSnapshots(ctx context.Context, userID string) (map[string]badge.SkillSnapshot, error) {
	profiles, err := o.skills.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]badge.SkillSnapshot, len(profiles))
	for _, p := range profiles {
		snapshots[p.SkillID] = badge.SkillSnapshot{Level: p.Level}
	}
	return snapshots, nil
}

// weekDates collects the user's active days for the streak week display.
// Days can span a break, so all records contribute.
func (o *Orchestrator) weekDates(ctx context.Context, userID string) ([]time.Time, error) {
	records, err := o.streaks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	for _, r := range records {
		dates = append(dates, r.ActiveDates...)
	}
	return dates, nil
}

// awardBadges applies matched badges to the state and returns their ids in
// catalog order.
func awardBadges(state *progression.ProgressionState, earned []badge.Definition, now time.Time) []string {
	ids := make([]string, 0, len(earned))
	for _, def := range earned {
		if err := state.AddBadge(def.ID, string(def.Category), now); err != nil {
			// Already owned; matching skips owned badges, so this only
			// happens on a replayed snapshot. Keep going.
			continue
		}
		ids = append(ids, def.ID)
	}
	return ids
}
