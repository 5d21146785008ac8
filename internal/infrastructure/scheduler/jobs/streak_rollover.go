// Package jobs contains implementations of scheduled jobs for the
// progression engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skillstream/progression-engine/internal/application/orchestrator"
	"github.com/skillstream/progression-engine/internal/domain/progression"
	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/streak"
	"github.com/skillstream/progression-engine/pkg/retry"
	"github.com/skillstream/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK ROLLOVER JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakRolloverJob runs shortly after platform midnight and reconciles
// every active streak with the new calendar day:
//
//   - streaks whose last active day is two or more days old are archived
//     and a streak.broken event goes out
//   - CompletedToday is cleared for the new day
//   - StreakAtRisk is raised for streaks whose last active day was yesterday
//   - the Monday-first week display is rebuilt
//
// Each user is reconciled in their own transaction; one user failing never
// stops the sweep.
type StreakRolloverJob struct {
	progressions progression.Repository
	streaks      streak.Repository
	tx           orchestrator.TxManager
	bus          shared.EventBus
	retrier      *retry.Retrier
	now          func() time.Time
	logger       *slog.Logger
	config       StreakRolloverConfig

	lastRunStats atomic.Value // *StreakRolloverStats
}

// StreakRolloverConfig contains configuration for the rollover job.
type StreakRolloverConfig struct {
	// Workers is the number of users reconciled concurrently.
	Workers int

	// Timeout is the maximum duration for one full sweep.
	Timeout time.Duration
}

// DefaultStreakRolloverConfig returns sensible defaults.
func DefaultStreakRolloverConfig() StreakRolloverConfig {
	return StreakRolloverConfig{
		Workers: 8,
		Timeout: 10 * time.Minute,
	}
}

// StreakRolloverStats contains statistics from one sweep.
type StreakRolloverStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	UsersChecked   int64
	StreaksExpired int64
	AtRiskFlagged  int64
	Failures       int64
}

// NewStreakRolloverJob creates the rollover job. now is injected for
// deterministic calendar math in tests; pass timeutil.Now in production.
func NewStreakRolloverJob(
	progressions progression.Repository,
	streaks streak.Repository,
	tx orchestrator.TxManager,
	bus shared.EventBus,
	config StreakRolloverConfig,
	now func() time.Time,
	logger *slog.Logger,
) *StreakRolloverJob {
	if config.Workers <= 0 {
		config.Workers = DefaultStreakRolloverConfig().Workers
	}
	if now == nil {
		now = timeutil.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StreakRolloverJob{
		progressions: progressions,
		streaks:      streaks,
		tx:           tx,
		bus:          bus,
		retrier: retry.New(
			retry.WithMaxAttempts(5),
			retry.WithInitialDelay(20*time.Millisecond),
			retry.WithMaxDelay(500*time.Millisecond),
			retry.WithJitter(0.3),
			retry.WithRetryIf(shared.IsRetryable),
		),
		now:    now,
		logger: logger.With(slog.String("component", "streak_rollover")),
		config: config,
	}
}

// Name returns the job name.
func (j *StreakRolloverJob) Name() string {
	return "streak_rollover"
}

// Description returns a human-readable description.
func (j *StreakRolloverJob) Description() string {
	return "Expires broken streaks and refreshes daily streak flags"
}

// Run executes one sweep over all users with an active streak.
func (j *StreakRolloverJob) Run(ctx context.Context) error {
	startedAt := j.now()
	stats := &StreakRolloverStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	userIDs, err := j.streaks.ListActiveUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users with active streaks: %w", err)
	}

	j.logger.Info("streak rollover started", slog.Int("users", len(userIDs)))

	sem := make(chan struct{}, j.config.Workers)
	var wg sync.WaitGroup

	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			atomic.AddInt64(&stats.UsersChecked, 1)
			if err := j.rollUser(ctx, userID, stats); err != nil {
				atomic.AddInt64(&stats.Failures, 1)
				j.logger.Error("streak rollover failed for user",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}
		}(userID)
	}

	wg.Wait()

	stats.CompletedAt = j.now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("streak rollover completed",
		slog.Int64("users_checked", stats.UsersChecked),
		slog.Int64("streaks_expired", stats.StreaksExpired),
		slog.Int64("at_risk_flagged", stats.AtRiskFlagged),
		slog.Int64("failures", stats.Failures),
		slog.Duration("duration", stats.Duration),
	)

	return nil
}

// rollUser reconciles a single user inside one transaction, retried on
// version conflicts.
func (j *StreakRolloverJob) rollUser(ctx context.Context, userID string, stats *StreakRolloverStats) error {
	var events []shared.Event

	err := j.retrier.Do(ctx, func(ctx context.Context) error {
		events = events[:0]
		return j.tx.WithinTx(ctx, func(ctx context.Context) error {
			now := j.now()

			active, err := j.streaks.GetActive(ctx, userID)
			if err != nil {
				if shared.IsNotFound(err) {
					// Broke between listing and locking; nothing to do.
					return nil
				}
				return err
			}

			state, err := j.progressions.Get(ctx, userID)
			if err != nil {
				return err
			}

			expired := false
			if streak.Expired(active, now) {
				longestBefore, err := j.streaks.LongestLength(ctx, userID)
				if err != nil {
					return err
				}
				if streak.Expire(active, longestBefore, now) {
					if err := j.streaks.Save(ctx, active); err != nil {
						return err
					}
					expired = true
					atomic.AddInt64(&stats.StreaksExpired, 1)
					events = append(events,
						shared.NewStreakBrokenEvent(userID, now, active.Length, active.LongestInHistory),
					)
				}
			}

			currentLength := active.Length
			atRisk := false
			if expired {
				currentLength = 0
			} else {
				atRisk = streak.AtRisk(active, now)
				if atRisk {
					atomic.AddInt64(&stats.AtRiskFlagged, 1)
				}
			}

			dates, err := j.weekDates(ctx, userID)
			if err != nil {
				return err
			}

			completedToday := !expired && active.ContainsDate(timeutil.StartOfDay(timeutil.ToPlatform(now)))
			state.ApplyStreak(currentLength, state.LongestStreak, completedToday, atRisk, streak.WeekArray(dates, now), now)

			return j.progressions.Save(ctx, state, state.Version)
		})
	})
	if err != nil {
		return err
	}

	for _, e := range events {
		if err := j.bus.Publish(e); err != nil {
			j.logger.Warn("event publish failed",
				slog.String("event_type", string(e.EventType())),
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// weekDates collects the user's active days across all records.
func (j *StreakRolloverJob) weekDates(ctx context.Context, userID string) ([]time.Time, error) {
	records, err := j.streaks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	for _, r := range records {
		dates = append(dates, r.ActiveDates...)
	}
	return dates, nil
}

// LastRunStats returns statistics from the last sweep.
func (j *StreakRolloverJob) LastRunStats() *StreakRolloverStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*StreakRolloverStats)
}
