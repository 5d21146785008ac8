package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skillstream/progression-engine/internal/domain/badge"
	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/skill"
)

// ═══════════════════════════════════════════════════════════════════════════
// ASSESSMENT VIDEO SCORED
// One fully-answered assessment video updates exactly one skill profile,
// recomputes its competency and re-matches skill-mastery badges. This path
// never touches XP or streaks.
// ═══════════════════════════════════════════════════════════════════════════

// AssessmentScoredCommand describes an "assessment video fully answered"
// event.
type AssessmentScoredCommand struct {
	// EventID is the delivery layer's stable event identity.
	EventID string

	// UserID is the learner who answered the assessment.
	UserID string

	// OrganizationID is the learner's organization.
	OrganizationID string

	// VideoID identifies the assessed video. A video is folded into a
	// skill profile at most once per user.
	VideoID string

	// CompetencyID and SkillID locate the assessed skill.
	CompetencyID string
	SkillID      string

	// PerQuestionScores are the derived 0-100 scores of the video's
	// scorable questions.
	PerQuestionScores []int
}

// Validate rejects malformed commands before any mutation.
func (c AssessmentScoredCommand) Validate() error {
	if c.EventID == "" {
		return shared.ErrInvalidEventID
	}
	if c.UserID == "" {
		return shared.NewDomainError("orchestrator", "OnAssessmentVideoScored", shared.ErrInvalidID, "user id is required")
	}
	if c.VideoID == "" {
		return shared.NewDomainError("orchestrator", "OnAssessmentVideoScored", shared.ErrInvalidID, "video id is required")
	}
	if c.SkillID == "" {
		return shared.ErrUnknownSkill
	}
	if c.CompetencyID == "" {
		return shared.ErrUnknownCompetency
	}
	if len(c.PerQuestionScores) == 0 {
		return shared.ErrNoScorableAnswers
	}
	for _, s := range c.PerQuestionScores {
		if s < 0 || s > 100 {
			return shared.ErrInvalidScore
		}
	}
	return nil
}

// AssessmentScoredResult is the outcome of folding one assessment video.
type AssessmentScoredResult struct {
	VideoScore      int
	SkillLevel      int
	CompetencyLevel int
	CompetencyScore int
	NewBadges       []string

	// Duplicate is true when the event or video was already applied and
	// this call was a no-op.
	Duplicate bool

	// Events are the occurred domain events, already published.
	Events []shared.Event
}

// OnAssessmentVideoScored folds a fully-answered assessment video into the
// user's skill profile and recomputes the competency rollup. Badge matching
// on this path is restricted to skill-mastery criteria.
func (o *Orchestrator) OnAssessmentVideoScored(ctx context.Context, cmd AssessmentScoredCommand) (*AssessmentScoredResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	videoScore, err := skill.VideoScore(cmd.PerQuestionScores)
	if err != nil {
		return nil, err
	}

	var result *AssessmentScoredResult

	err = o.runSerialized(ctx, func(ctx context.Context) error {
		now := o.now()

		// Double idempotency: the event identity and the (user, video)
		// pair. Either one makes the redelivery a success-no-op.
		processed, err := o.ledger.IsProcessed(ctx, cmd.UserID, cmd.EventID)
		if err != nil {
			return fmt.Errorf("idempotency check: %w", err)
		}
		scored, err := o.skills.IsVideoScored(ctx, cmd.UserID, cmd.VideoID)
		if err != nil {
			return fmt.Errorf("video idempotency check: %w", err)
		}
		if processed || scored {
			profile, err := o.skills.Get(ctx, cmd.UserID, cmd.SkillID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			result = &AssessmentScoredResult{Duplicate: true}
			if profile != nil {
				result.SkillLevel = profile.Level
			}
			return nil
		}

		profile, err := o.skills.GetOrCreate(ctx, cmd.UserID, cmd.SkillID, cmd.CompetencyID)
		if err != nil {
			return fmt.Errorf("load skill profile: %w", err)
		}

		transition, err := skill.UpdateSkill(profile, videoScore, now)
		if err != nil {
			return err
		}
		if err := o.skills.Save(ctx, profile); err != nil {
			return fmt.Errorf("save skill profile: %w", err)
		}
		if err := o.skills.MarkVideoScored(ctx, cmd.UserID, cmd.VideoID); err != nil {
			return fmt.Errorf("mark video scored: %w", err)
		}
		if err := o.ledger.MarkProcessed(ctx, cmd.UserID, cmd.EventID, now); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}

		// Synchronous competency rollup over the updated member set.
		members, err := o.skills.ListByCompetency(ctx, cmd.UserID, cmd.CompetencyID)
		if err != nil {
			return fmt.Errorf("load competency members: %w", err)
		}
		competency, err := skill.RecomputeCompetency(cmd.CompetencyID, members)
		if err != nil {
			return err
		}

		// Skill-mastery badges only on this path.
		state, err := o.progressions.GetOrCreate(ctx, cmd.UserID, cmd.OrganizationID)
		if err != nil {
			return fmt.Errorf("load progression: %w", err)
		}
		skills, err := o.skillSnapshots(ctx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("load skills: %w", err)
		}

		matchCtx := badge.MatchContext{Skills: skills}
		earned := badge.MatchSkillMastery(o.catalog, matchCtx, state.OwnedBadgeSet())

		var newBadges []string
		if len(earned) > 0 {
			expectedVersion := state.Version
			newBadges = awardBadges(state, earned, now)
			if err := o.progressions.Save(ctx, state, expectedVersion); err != nil {
				return err
			}
		}

		var events []shared.Event
		if transition.Promoted {
			events = append(events, shared.NewSkillLeveledUpEvent(
				cmd.UserID, now,
				cmd.SkillID, cmd.CompetencyID,
				transition.LevelBefore, transition.LevelAfter,
			))
		}
		if transition.Demoted {
			events = append(events, shared.NewSkillLeveledDownEvent(
				cmd.UserID, now,
				cmd.SkillID, cmd.CompetencyID,
				transition.LevelBefore, transition.LevelAfter,
			))
		}
		if len(newBadges) > 0 {
			events = append(events, shared.NewBadgeEarnedEvent(cmd.UserID, now, newBadges))
		}

		result = &AssessmentScoredResult{
			VideoScore:      videoScore,
			SkillLevel:      profile.Level,
			CompetencyLevel: competency.Level,
			CompetencyScore: competency.CurrentScore,
			NewBadges:       newBadges,
			Events:          events,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		o.logger.Info("duplicate assessment event skipped",
			slog.String("user_id", cmd.UserID),
			slog.String("event_id", cmd.EventID),
			slog.String("video_id", cmd.VideoID),
		)
		return result, nil
	}

	o.publish(result.Events)

	o.logger.Info("assessment video applied",
		slog.String("user_id", cmd.UserID),
		slog.String("skill_id", cmd.SkillID),
		slog.Int("video_score", result.VideoScore),
		slog.Int("skill_level", result.SkillLevel),
		slog.Int("competency_level", result.CompetencyLevel),
	)
	return result, nil
}
