package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skillstream/progression-engine/internal/domain/badge"
	"github.com/skillstream/progression-engine/internal/domain/progression"
	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/streak"
)

// ═══════════════════════════════════════════════════════════════════════════
// CAMPAIGN COMPLETED
// The full pipeline: streak transition, campaign bonus XP, level derivation,
// badge matching. Module XP was already awarded per module along the way.
// ═══════════════════════════════════════════════════════════════════════════

// CampaignCompletedCommand describes a "campaign completed" event.
type CampaignCompletedCommand struct {
	// EventID is the delivery layer's stable event identity.
	EventID string

	// UserID is the learner who finished the campaign.
	UserID string

	// OrganizationID is the learner's organization.
	OrganizationID string

	// CampaignID is the finished campaign.
	CampaignID string
}

// Validate rejects malformed commands before any mutation.
func (c CampaignCompletedCommand) Validate() error {
	if c.EventID == "" {
		return shared.ErrInvalidEventID
	}
	if c.UserID == "" {
		return shared.NewDomainError("orchestrator", "OnCampaignCompleted", shared.ErrInvalidID, "user id is required")
	}
	if c.CampaignID == "" {
		return shared.NewDomainError("orchestrator", "OnCampaignCompleted", shared.ErrInvalidID, "campaign id is required")
	}
	return nil
}

// CampaignCompletedResult is the outcome of applying a campaign completion.
type CampaignCompletedResult struct {
	StreakOutcome     streak.Outcome
	StreakLength      int
	XPEarned          int
	TotalXP           int
	Level             int
	LeveledUp         bool
	MilestonesCrossed []int
	NewBadges         []string

	// Duplicate is true when the event was already applied and this call
	// was a no-op.
	Duplicate bool

	// Events are the occurred domain events, already published.
	Events []shared.Event
}

// OnCampaignCompleted runs the full progression pipeline for one finished
// campaign: streak first (the post-transition length feeds the XP
// multiplier), then the campaign bonus, then badges against the post-update
// snapshot. Everything commits in one transaction.
func (o *Orchestrator) OnCampaignCompleted(ctx context.Context, cmd CampaignCompletedCommand) (*CampaignCompletedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *CampaignCompletedResult

	err := o.runSerialized(ctx, func(ctx context.Context) error {
		now := o.now()

		state, err := o.progressions.GetOrCreate(ctx, cmd.UserID, cmd.OrganizationID)
		if err != nil {
			return fmt.Errorf("load progression: %w", err)
		}

		processed, err := o.ledger.IsProcessed(ctx, cmd.UserID, cmd.EventID)
		if err != nil {
			return fmt.Errorf("idempotency check: %w", err)
		}
		if processed {
			result = &CampaignCompletedResult{
				StreakLength: state.CurrentStreak,
				TotalXP:      int(state.TotalXP),
				Level:        int(state.Level),
				Duplicate:    true,
			}
			return nil
		}

		// 1. Streak transition.
		active, err := o.streaks.GetActive(ctx, cmd.UserID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("load streak: %w", err)
		}
		longestBefore, err := o.streaks.LongestLength(ctx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("load streak history: %w", err)
		}

		transition, err := o.streakEngine.RecordCompletion(active, cmd.UserID, cmd.CampaignID, now, longestBefore)
		if err != nil {
			return err
		}
		if transition.Archived != nil {
			if err := o.streaks.Save(ctx, transition.Archived); err != nil {
				return fmt.Errorf("save archived streak: %w", err)
			}
		}
		if err := o.streaks.Save(ctx, transition.Current); err != nil {
			return fmt.Errorf("save streak: %w", err)
		}

		// 2. Campaign completion bonus, multiplied by the new streak length.
		award, err := progression.AwardXP(progression.ActionCampaign, 1, transition.Current.Length, state.TotalXP)
		if err != nil {
			return err
		}

		expectedVersion := state.Version
		state.RecordCampaignCompletion(now)
		state.ApplyAward(award, now)

		dates, err := o.weekDates(ctx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("load week dates: %w", err)
		}
		dates = append(dates, transition.Current.ActiveDates...)
		state.ApplyStreak(
			transition.Current.Length,
			maxLength(transition.Current.Length, longestBefore, lengthOf(transition.Archived)),
			true,  // this completion makes today active
			false, // an active day is never at risk
			streak.WeekArray(dates, now),
			now,
		)

		// 3. Badge matching against the post-update snapshot.
		skills, err := o.skillSnapshots(ctx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("load skills: %w", err)
		}

		matchCtx := badge.MatchContext{
			CurrentStreak:           state.CurrentStreak,
			TotalCampaignsCompleted: state.TotalCampaignsCompleted,
			Level:                   int(state.Level),
			IsFirstCompletion:       state.TotalCampaignsCompleted == 1,
			Skills:                  skills,
			CompletionTimestamp:     now,
		}
		newBadges := awardBadges(state, badge.Match(o.catalog, matchCtx, state.OwnedBadgeSet()), now)

		// 4. Commit: idempotency mark and versioned state write together.
		if err := o.ledger.MarkProcessed(ctx, cmd.UserID, cmd.EventID, now); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		if err := o.progressions.Save(ctx, state, expectedVersion); err != nil {
			return err
		}

		// 5. Occurred events for the notification dispatcher.
		var events []shared.Event
		if transition.Outcome == streak.OutcomeStarted {
			events = append(events, shared.NewStreakStartedEvent(cmd.UserID, now))
		}
		if transition.Archived != nil {
			events = append(events, shared.NewStreakBrokenEvent(
				cmd.UserID, now,
				transition.Archived.Length, transition.Archived.LongestInHistory,
			))
		}
		for _, m := range transition.MilestonesCrossed {
			events = append(events, shared.NewStreakMilestoneEvent(cmd.UserID, now, m, transition.Current.Length))
		}
		events = append(events, shared.NewXPAwardedEvent(cmd.UserID, now, string(progression.ActionCampaign), int(award.XPEarned), int(award.NewTotalXP)))
		if award.LeveledUp {
			events = append(events, shared.NewLevelUpEvent(
				cmd.UserID, now,
				int(award.LevelBefore), int(award.LevelAfter),
				state.LevelTitle, int(state.TotalXP),
			))
		}
		if len(newBadges) > 0 {
			events = append(events, shared.NewBadgeEarnedEvent(cmd.UserID, now, newBadges))
		}
		events = append(events, shared.NewCampaignCompletedEvent(
			cmd.UserID, now,
			cmd.CampaignID, cmd.OrganizationID,
			int(award.XPEarned), transition.Current.Length,
		))

		result = &CampaignCompletedResult{
			StreakOutcome:     transition.Outcome,
			StreakLength:      transition.Current.Length,
			XPEarned:          int(award.XPEarned),
			TotalXP:           int(award.NewTotalXP),
			Level:             int(award.LevelAfter),
			LeveledUp:         award.LeveledUp,
			MilestonesCrossed: transition.MilestonesCrossed,
			NewBadges:         newBadges,
			Events:            events,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		o.logger.Info("duplicate campaign event skipped",
			slog.String("user_id", cmd.UserID),
			slog.String("event_id", cmd.EventID),
		)
		return result, nil
	}

	o.publish(result.Events)

	o.logger.Info("campaign completion applied",
		slog.String("user_id", cmd.UserID),
		slog.String("campaign_id", cmd.CampaignID),
		slog.String("streak_outcome", string(result.StreakOutcome)),
		slog.Int("streak_length", result.StreakLength),
		slog.Int("xp_earned", result.XPEarned),
		slog.Int("new_badges", len(result.NewBadges)),
	)
	return result, nil
}

func lengthOf(r *streak.Record) int {
	if r == nil {
		return 0
	}
	return r.Length
}

func maxLength(values ...int) int {
	m := 0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
