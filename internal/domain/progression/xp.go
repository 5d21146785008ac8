package progression

import (
	"math"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// Action identifies what a user did to earn experience.
type Action string

const (
	// ActionModule is the completion of one video module.
	ActionModule Action = "module"

	// ActionCampaign is the completion bonus for finishing a whole campaign.
	// Module XP has already been awarded incrementally per module by then;
	// the bonus is a separate award, never a recount.
	ActionCampaign Action = "campaign"

	// ActionCorrectAnswer is a correctly answered assessment question.
	ActionCorrectAnswer Action = "correct_answer"
)

// IsValid checks that the action is a known one.
func (a Action) IsValid() bool {
	switch a {
	case ActionModule, ActionCampaign, ActionCorrectAnswer:
		return true
	default:
		return false
	}
}

// BaseXP returns the per-unit base XP for the action.
func (a Action) BaseXP() XP {
	switch a {
	case ActionModule:
		return 25
	case ActionCampaign:
		return 100
	case ActionCorrectAnswer:
		return 5
	default:
		return 0
	}
}

// Streak multiplier bounds: 1.0x at streak <= 1, ramping linearly to 1.5x
// at streak >= 30.
const (
	multiplierFloor   = 1.0
	multiplierCeiling = 1.5
	multiplierRampEnd = 30
)

// StreakMultiplier returns the XP multiplier for a streak length.
func StreakMultiplier(streak int) float64 {
	if streak <= 1 {
		return multiplierFloor
	}
	if streak >= multiplierRampEnd {
		return multiplierCeiling
	}
	return multiplierFloor + float64(streak-1)*(multiplierCeiling-multiplierFloor)/float64(multiplierRampEnd-1)
}

// Award is the result of an XP award calculation.
type Award struct {
	Action      Action
	XPEarned    XP
	NewTotalXP  XP
	LevelBefore Level
	LevelAfter  Level
	LeveledUp   bool
}

// AwardXP computes the experience earned for count units of an action given
// the user's current streak, and derives the before/after levels. It never
// mutates state; the caller applies the award inside its transaction.
func AwardXP(action Action, count int, currentStreak int, priorTotalXP XP) (Award, error) {
	if !action.IsValid() {
		return Award{}, shared.ErrInvalidAction
	}
	if count < 1 {
		return Award{}, shared.ErrInvalidCount
	}
	if currentStreak < 0 {
		currentStreak = 0
	}
	if priorTotalXP < 0 {
		priorTotalXP = 0
	}

	multiplier := StreakMultiplier(currentStreak)
	earned := XP(math.Round(float64(action.BaseXP()) * float64(count) * multiplier))

	before := LevelFromXP(priorTotalXP)
	after := LevelFromXP(priorTotalXP + earned)

	return Award{
		Action:      action,
		XPEarned:    earned,
		NewTotalXP:  priorTotalXP + earned,
		LevelBefore: before.Level,
		LevelAfter:  after.Level,
		LeveledUp:   after.Level > before.Level,
	}, nil
}
