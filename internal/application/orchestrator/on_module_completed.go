package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skillstream/progression-engine/internal/domain/progression"
	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// MODULE COMPLETED
// Awards per-module XP as modules finish. Streaks are driven only by whole
// campaign completions, so this path never touches the streak engine.
// ═══════════════════════════════════════════════════════════════════════════

// ModuleCompletedCommand describes a "module completed" event.
type ModuleCompletedCommand struct {
	// EventID is the delivery layer's stable event identity.
	EventID string

	// UserID is the learner who completed the module(s).
	UserID string

	// OrganizationID is the learner's organization.
	OrganizationID string

	// ModuleCount is how many modules this event covers, at least 1.
	ModuleCount int
}

// Validate rejects malformed commands before any mutation.
func (c ModuleCompletedCommand) Validate() error {
	if c.EventID == "" {
		return shared.ErrInvalidEventID
	}
	if c.UserID == "" {
		return shared.NewDomainError("orchestrator", "OnModuleCompleted", shared.ErrInvalidID, "user id is required")
	}
	if c.ModuleCount < 1 {
		return shared.ErrInvalidCount
	}
	return nil
}

// ModuleCompletedResult is the outcome of applying a module completion.
type ModuleCompletedResult struct {
	XPEarned  int
	TotalXP   int
	Level     int
	LeveledUp bool

	// Duplicate is true when the event was already applied and this call
	// was a no-op.
	Duplicate bool

	// Events are the occurred domain events, already published.
	Events []shared.Event
}

// OnModuleCompleted applies per-module XP for a completed module event.
func (o *Orchestrator) OnModuleCompleted(ctx context.Context, cmd ModuleCompletedCommand) (*ModuleCompletedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *ModuleCompletedResult

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
			result = &ModuleCompletedResult{
				TotalXP:   int(state.TotalXP),
				Level:     int(state.Level),
				Duplicate: true,
			}
			return nil
		}

		award, err := progression.AwardXP(progression.ActionModule, cmd.ModuleCount, state.CurrentStreak, state.TotalXP)
		if err != nil {
			return err
		}

		expectedVersion := state.Version
		state.ApplyAward(award, now)

		if err := o.ledger.MarkProcessed(ctx, cmd.UserID, cmd.EventID, now); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		if err := o.progressions.Save(ctx, state, expectedVersion); err != nil {
			return err
		}

		events := []shared.Event{
			shared.NewXPAwardedEvent(cmd.UserID, now, string(progression.ActionModule), int(award.XPEarned), int(award.NewTotalXP)),
		}
		if award.LeveledUp {
			events = append(events, shared.NewLevelUpEvent(
				cmd.UserID, now,
				int(award.LevelBefore), int(award.LevelAfter),
				state.LevelTitle, int(state.TotalXP),
			))
		}

		result = &ModuleCompletedResult{
			XPEarned:  int(award.XPEarned),
			TotalXP:   int(award.NewTotalXP),
			Level:     int(award.LevelAfter),
			LeveledUp: award.LeveledUp,
			Events:    events,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		o.logger.Info("duplicate module event skipped",
			slog.String("user_id", cmd.UserID),
			slog.String("event_id", cmd.EventID),
		)
		return result, nil
	}

	o.publish(result.Events)

	o.logger.Info("module completion applied",
		slog.String("user_id", cmd.UserID),
		slog.String("event_id", cmd.EventID),
		slog.Int("module_count", cmd.ModuleCount),
		slog.Int("xp_earned", result.XPEarned),
		slog.Int("level", result.Level),
	)
	return result, nil
}
