package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/badge"
	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// RECALCULATE BADGES
// Additive replay over the stored aggregates: badges the user qualifies for
// but does not own yet are awarded, nothing is ever removed.
// ═══════════════════════════════════════════════════════════════════════════

// RecalculateBadgesResult lists the badges a recalculation added.
type RecalculateBadgesResult struct {
	NewBadges []string

	// Events are the occurred domain events, already published.
	Events []shared.Event
}

// RecalculateBadges re-matches the catalog against the user's current
// aggregates and awards anything missing. Time-window badges need a
// completion timestamp, so they can only be earned on the live completion
// path; the replay leaves them alone.
func (o *Orchestrator) RecalculateBadges(ctx context.Context, userID string) (*RecalculateBadgesResult, error) {
	if userID == "" {
		return nil, shared.NewDomainError("orchestrator", "RecalculateBadges", shared.ErrInvalidID, "user id is required")
	}

	var result *RecalculateBadgesResult

	err := o.runSerialized(ctx, func(ctx context.Context) error {
		now := o.now()

		state, err := o.progressions.Get(ctx, userID)
		if err != nil {
			return err
		}

		skills, err := o.skillSnapshots(ctx, userID)
		if err != nil {
			return fmt.Errorf("load skills: %w", err)
		}

		// Anyone with a completed campaign had a first completion, so the
		// replay can backfill that badge.
		matchCtx := badge.MatchContext{
			CurrentStreak:           state.CurrentStreak,
			TotalCampaignsCompleted: state.TotalCampaignsCompleted,
			Level:                   int(state.Level),
			IsFirstCompletion:       state.TotalCampaignsCompleted >= 1,
			Skills:                  skills,
			CompletionTimestamp:     time.Time{},
		}

		earned := badge.Match(o.catalog, matchCtx, state.OwnedBadgeSet())
		if len(earned) == 0 {
			result = &RecalculateBadgesResult{}
			return nil
		}

		expectedVersion := state.Version
		newBadges := awardBadges(state, earned, now)
		if err := o.progressions.Save(ctx, state, expectedVersion); err != nil {
			return err
		}

		result = &RecalculateBadgesResult{
			NewBadges: newBadges,
			Events:    []shared.Event{shared.NewBadgeEarnedEvent(userID, now, newBadges)},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.publish(result.Events)

	if len(result.NewBadges) > 0 {
		o.logger.Info("badge recalculation awarded badges",
			slog.String("user_id", userID),
			slog.Int("new_badges", len(result.NewBadges)),
		)
	}
	return result, nil
}
