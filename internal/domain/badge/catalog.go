// Package badge holds the static badge catalog and the matching engine that
// evaluates catalog criteria against a progression snapshot. Awards are
// append-only: a badge, once owned, is never re-evaluated or revoked.
package badge

// Category groups badges for display.
type Category string

const (
	CategoryStreak     Category = "streak"
	CategoryCompletion Category = "completion"
	CategoryLevel      Category = "level"
	CategorySkill      Category = "skill"
	CategoryTimeOfDay  Category = "time_of_day"
)

// CriteriaKind tags the closed set of criteria variants. The matcher
// switches exhaustively over it; adding a kind is a localized edit here and
// in the matcher.
type CriteriaKind string

const (
	// KindStreakAtLeast qualifies when the current streak length reaches N.
	KindStreakAtLeast CriteriaKind = "streak_at_least"

	// KindFirstCompletion qualifies exactly on the first completed campaign.
	KindFirstCompletion CriteriaKind = "first_completion"

	// KindCampaignsAtLeast qualifies when total completed campaigns reach N.
	KindCampaignsAtLeast CriteriaKind = "campaigns_at_least"

	// KindLevelAtLeast qualifies when the user level reaches N.
	KindLevelAtLeast CriteriaKind = "level_at_least"

	// KindSkillMastery qualifies on skill levels: any single skill at
	// MinLevel when MinCount is 0, otherwise at least MinCount skills at
	// MinLevel.
	KindSkillMastery CriteriaKind = "skill_mastery"

	// KindTimeWindow qualifies when the completion's hour of day falls in
	// [FromHour, ToHour), wrapping past midnight when FromHour > ToHour.
	KindTimeWindow CriteriaKind = "time_window"
)

// Criteria is one tagged criteria variant. Only the fields of the tagged
// kind are meaningful.
type Criteria struct {
	Kind CriteriaKind

	// Threshold is N for streak, campaigns and level criteria.
	Threshold int

	// MinLevel and MinCount parameterize skill-mastery criteria.
	MinLevel int
	MinCount int

	// FromHour and ToHour bound time-window criteria, half-open.
	FromHour int
	ToHour   int
}

// Definition is one immutable catalog entry.
type Definition struct {
	ID       string
	Name     string
	Category Category
	Criteria Criteria
}

// IsSkillMastery reports whether the badge is driven by skill levels only.
// The assessment path evaluates just these.
func (d Definition) IsSkillMastery() bool {
	return d.Criteria.Kind == KindSkillMastery
}

// Catalog is the authoritative award catalog in stable award order.
// Matching returns badges in this order.
var Catalog = []Definition{
	{ID: "first-completion", Name: "First Steps", Category: CategoryCompletion,
		Criteria: Criteria{Kind: KindFirstCompletion}},

	{ID: "streak-3", Name: "Warming Up", Category: CategoryStreak,
		Criteria: Criteria{Kind: KindStreakAtLeast, Threshold: 3}},
	{ID: "streak-7", Name: "One Week Strong", Category: CategoryStreak,
		Criteria: Criteria{Kind: KindStreakAtLeast, Threshold: 7}},
	{ID: "streak-14", Name: "Fortnight Focus", Category: CategoryStreak,
		Criteria: Criteria{Kind: KindStreakAtLeast, Threshold: 14}},
	{ID: "streak-30", Name: "Habit Builder", Category: CategoryStreak,
		Criteria: Criteria{Kind: KindStreakAtLeast, Threshold: 30}},
	{ID: "streak-90", Name: "Quarter Master", Category: CategoryStreak,
		Criteria: Criteria{Kind: KindStreakAtLeast, Threshold: 90}},
	{ID: "streak-365", Name: "Year of Learning", Category: CategoryStreak,
		Criteria: Criteria{Kind: KindStreakAtLeast, Threshold: 365}},

	{ID: "campaigns-5", Name: "Getting Serious", Category: CategoryCompletion,
		Criteria: Criteria{Kind: KindCampaignsAtLeast, Threshold: 5}},
	{ID: "campaigns-10", Name: "Double Digits", Category: CategoryCompletion,
		Criteria: Criteria{Kind: KindCampaignsAtLeast, Threshold: 10}},
	{ID: "campaigns-25", Name: "Campaign Veteran", Category: CategoryCompletion,
		Criteria: Criteria{Kind: KindCampaignsAtLeast, Threshold: 25}},
	{ID: "campaigns-50", Name: "Half Century", Category: CategoryCompletion,
		Criteria: Criteria{Kind: KindCampaignsAtLeast, Threshold: 50}},

	{ID: "level-5", Name: "Rising Star", Category: CategoryLevel,
		Criteria: Criteria{Kind: KindLevelAtLeast, Threshold: 5}},
	{ID: "level-10", Name: "Committed Learner", Category: CategoryLevel,
		Criteria: Criteria{Kind: KindLevelAtLeast, Threshold: 10}},
	{ID: "level-25", Name: "Knowledge Seeker", Category: CategoryLevel,
		Criteria: Criteria{Kind: KindLevelAtLeast, Threshold: 25}},
	{ID: "level-50", Name: "Grandmaster", Category: CategoryLevel,
		Criteria: Criteria{Kind: KindLevelAtLeast, Threshold: 50}},

	{ID: "skill-adept", Name: "Adept", Category: CategorySkill,
		Criteria: Criteria{Kind: KindSkillMastery, MinLevel: 3}},
	{ID: "skill-expert", Name: "Skill Expert", Category: CategorySkill,
		Criteria: Criteria{Kind: KindSkillMastery, MinLevel: 5}},
	{ID: "skill-polymath", Name: "Polymath", Category: CategorySkill,
		Criteria: Criteria{Kind: KindSkillMastery, MinLevel: 3, MinCount: 5}},

	{ID: "night-owl", Name: "Night Owl", Category: CategoryTimeOfDay,
		Criteria: Criteria{Kind: KindTimeWindow, FromHour: 22, ToHour: 4}},
	{ID: "early-bird", Name: "Early Bird", Category: CategoryTimeOfDay,
		Criteria: Criteria{Kind: KindTimeWindow, FromHour: 4, ToHour: 7}},
}

// ByID returns the catalog entry for a badge id.
func ByID(id string) (Definition, bool) {
	for _, d := range Catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}
