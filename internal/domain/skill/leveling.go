package skill

import (
	"time"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// Promotion to level k requires the counter to reach the stated consecutive
// count while every counted score stays at or above the stated minimum.
type levelThreshold struct {
	minScore    int
	consecutive int
}

var promotionThresholds = map[int]levelThreshold{
	2: {minScore: 50, consecutive: 5},
	3: {minScore: 65, consecutive: 10},
	4: {minScore: 80, consecutive: 20},
	5: {minScore: 90, consecutive: 35},
}

const (
	minLevel = 1
	maxLevel = 5

	// demotionTrigger is the counter value that drops the level by one.
	demotionTrigger = -3
)

// Transition is the outcome of folding one score into a profile.
type Transition struct {
	LevelBefore int
	LevelAfter  int
	Promoted    bool
	Demoted     bool
}

// UpdateSkill folds a new 0-100 video score into the profile and applies the
// hysteresis leveling rule. Promotion needs a run of consecutive scores at or
// above the next level's minimum; demotion needs 3 consecutive scores below
// the current level's minimum. Any score that does neither breaks the run
// and resets the counter. The counter also resets to 0 on every promotion
// and demotion, and the level never leaves [1, 5].
func UpdateSkill(p *Profile, score int, now time.Time) (Transition, error) {
	if score < 0 || score > 100 {
		return Transition{}, shared.ErrInvalidScore
	}

	p.recordScore(score, now)

	t := Transition{LevelBefore: p.Level, LevelAfter: p.Level}

	switch {
	case p.Level < maxLevel && score >= promotionThresholds[p.Level+1].minScore:
		if p.ConsecutiveAboveThreshold < 0 {
			p.ConsecutiveAboveThreshold = 0
		}
		p.ConsecutiveAboveThreshold++
		if p.ConsecutiveAboveThreshold >= promotionThresholds[p.Level+1].consecutive {
			p.Level++
			p.ConsecutiveAboveThreshold = 0
			t.Promoted = true
		}

	case p.Level > minLevel && score < promotionThresholds[p.Level].minScore:
		if p.ConsecutiveAboveThreshold > 0 {
			p.ConsecutiveAboveThreshold = 0
		}
		p.ConsecutiveAboveThreshold--
		if p.ConsecutiveAboveThreshold <= demotionTrigger {
			p.Level--
			p.ConsecutiveAboveThreshold = 0
			t.Demoted = true
		}

	default:
		p.ConsecutiveAboveThreshold = 0
	}

	t.LevelAfter = p.Level
	return t, nil
}
