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
	"github.com/skillstream/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE RECONCILE JOB
// ══════════════════════════════════════════════════════════════════════════════

// BadgeReconcileJob sweeps all users and re-matches the badge catalog
// against their current state. It backfills badges added to the catalog
// after users already qualified, and closes any gap left by a crash
// between commit and notification. Time-window badges are excluded from
// replay; those are only earnable at completion time.
type BadgeReconcileJob struct {
	orchestrator *orchestrator.Orchestrator
	progressions progression.Repository
	now          func() time.Time
	logger       *slog.Logger
	config       BadgeReconcileConfig

	lastRunStats atomic.Value // *BadgeReconcileStats
}

// BadgeReconcileConfig contains configuration for the reconcile job.
type BadgeReconcileConfig struct {
	// Workers is the number of users reconciled concurrently.
	Workers int

	// Timeout is the maximum duration for one full sweep.
	Timeout time.Duration
}

// DefaultBadgeReconcileConfig returns sensible defaults.
func DefaultBadgeReconcileConfig() BadgeReconcileConfig {
	return BadgeReconcileConfig{
		Workers: 4,
		Timeout: 15 * time.Minute,
	}
}

// BadgeReconcileStats contains statistics from one sweep.
type BadgeReconcileStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	UsersChecked  int64
	BadgesAwarded int64
	Failures      int64
}

// NewBadgeReconcileJob creates the reconcile job.
func NewBadgeReconcileJob(
	orch *orchestrator.Orchestrator,
	progressions progression.Repository,
	config BadgeReconcileConfig,
	now func() time.Time,
	logger *slog.Logger,
) *BadgeReconcileJob {
	if config.Workers <= 0 {
		config.Workers = DefaultBadgeReconcileConfig().Workers
	}
	if now == nil {
		now = timeutil.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BadgeReconcileJob{
		orchestrator: orch,
		progressions: progressions,
		now:          now,
		logger:       logger.With(slog.String("component", "badge_reconcile")),
		config:       config,
	}
}

// Name returns the job name.
func (j *BadgeReconcileJob) Name() string {
	return "badge_reconcile"
}

// Description returns a human-readable description.
func (j *BadgeReconcileJob) Description() string {
	return "Re-matches the badge catalog against every user's current state"
}

// Run executes one sweep over all users with progression state.
func (j *BadgeReconcileJob) Run(ctx context.Context) error {
	startedAt := j.now()
	stats := &BadgeReconcileStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	userIDs, err := j.progressions.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	j.logger.Info("badge reconcile started", slog.Int("users", len(userIDs)))

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
			result, err := j.orchestrator.RecalculateBadges(ctx, userID)
			if err != nil {
				atomic.AddInt64(&stats.Failures, 1)
				j.logger.Error("badge reconcile failed for user",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				return
			}
			atomic.AddInt64(&stats.BadgesAwarded, int64(len(result.NewBadges)))
		}(userID)
	}

	wg.Wait()

	stats.CompletedAt = j.now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("badge reconcile completed",
		slog.Int64("users_checked", stats.UsersChecked),
		slog.Int64("badges_awarded", stats.BadgesAwarded),
		slog.Int64("failures", stats.Failures),
		slog.Duration("duration", stats.Duration),
	)

	return nil
}

// LastRunStats returns statistics from the last sweep.
func (j *BadgeReconcileJob) LastRunStats() *BadgeReconcileStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*BadgeReconcileStats)
}
