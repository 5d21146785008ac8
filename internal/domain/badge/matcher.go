package badge

import (
	"time"

	"github.com/skillstream/progression-engine/pkg/timeutil"
)

// SkillSnapshot is the per-skill slice of the match context.
type SkillSnapshot struct {
	Level int
}

// MatchContext is the snapshot of a user's progression that criteria are
// evaluated against. The orchestrator builds it after applying the
// triggering event, so thresholds see post-update values.
type MatchContext struct {
	CurrentStreak           int
	TotalCampaignsCompleted int
	Level                   int

	// IsFirstCompletion is true exactly when the triggering campaign is
	// the user's first, counting itself.
	IsFirstCompletion bool

	// Skills maps skill id to its snapshot.
	Skills map[string]SkillSnapshot

	// CompletionTimestamp is when the triggering completion happened.
	CompletionTimestamp time.Time
}

// Match evaluates the catalog against the context and returns the newly
// qualifying definitions in catalog order. Pure: already-owned badges are
// skipped without re-evaluation and nothing is ever removed.
func Match(catalog []Definition, ctx MatchContext, alreadyOwned map[string]bool) []Definition {
	var earned []Definition
	for _, def := range catalog {
		if alreadyOwned[def.ID] {
			continue
		}
		if qualifies(def.Criteria, ctx) {
			earned = append(earned, def)
		}
	}
	return earned
}

// MatchSkillMastery evaluates only skill-mastery badges. The assessment
// path uses it: scoring a video must never award streak, level or
// time-of-day badges.
func MatchSkillMastery(catalog []Definition, ctx MatchContext, alreadyOwned map[string]bool) []Definition {
	var earned []Definition
	for _, def := range catalog {
		if !def.IsSkillMastery() || alreadyOwned[def.ID] {
			continue
		}
		if qualifies(def.Criteria, ctx) {
			earned = append(earned, def)
		}
	}
	return earned
}

func qualifies(c Criteria, ctx MatchContext) bool {
	switch c.Kind {
	case KindStreakAtLeast:
		return ctx.CurrentStreak >= c.Threshold

	case KindFirstCompletion:
		return ctx.IsFirstCompletion

	case KindCampaignsAtLeast:
		return ctx.TotalCampaignsCompleted >= c.Threshold

	case KindLevelAtLeast:
		return ctx.Level >= c.Threshold

	case KindSkillMastery:
		count := 0
		for _, s := range ctx.Skills {
			if s.Level >= c.MinLevel {
				count++
			}
		}
		if c.MinCount > 0 {
			return count >= c.MinCount
		}
		return count >= 1

	case KindTimeWindow:
		if ctx.CompletionTimestamp.IsZero() {
			return false
		}
		hour := timeutil.HourOfDay(ctx.CompletionTimestamp)
		if c.FromHour <= c.ToHour {
			return hour >= c.FromHour && hour < c.ToHour
		}
		// Window wraps past midnight.
		return hour >= c.FromHour || hour < c.ToHour

	default:
		return false
	}
}
