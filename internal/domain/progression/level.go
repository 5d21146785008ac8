// Package progression contains the user progression aggregate: cumulative
// experience, derived level, streak summary and owned badges. The level and
// xp calculators in this package are pure and deterministic - given the same
// inputs they always produce the same outputs, which is what makes event
// redelivery safe to reconcile.
package progression

// XP represents experience points.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add adds a delta to the XP value.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Level represents a user level derived from cumulative XP.
type Level int

// Tier is the coarse level band a level falls into.
type Tier string

const (
	TierNewcomer Tier = "newcomer"
	TierLearner  Tier = "learner"
	TierAchiever Tier = "achiever"
	TierExpert   Tier = "expert"
	TierMaster   Tier = "master"
)

// tierBand maps a level range to its tier and display title.
type tierBand struct {
	maxLevel Level
	tier     Tier
	title    string
}

// Level 51 and above is Master; the zero maxLevel sentinel marks the open band.
var tierBands = []tierBand{
	{maxLevel: 5, tier: TierNewcomer, title: "Newcomer"},
	{maxLevel: 15, tier: TierLearner, title: "Learner"},
	{maxLevel: 30, tier: TierAchiever, title: "Achiever"},
	{maxLevel: 50, tier: TierExpert, title: "Expert"},
	{maxLevel: 0, tier: TierMaster, title: "Master"},
}

// LevelInfo is the full result of resolving cumulative XP into a level.
type LevelInfo struct {
	// Level is the derived level, always >= 1.
	Level Level

	// Title is the display title for the level's tier.
	Title string

	// Tier is the coarse level band.
	Tier Tier

	// XPInCurrentLevel is the XP accumulated since the last level boundary.
	XPInCurrentLevel XP

	// XPToNextLevel is the XP still needed to reach the next level.
	XPToNextLevel XP

	// TotalXPRequiredForLevel is the XP cost of advancing from this level
	// to the next one.
	TotalXPRequiredForLevel XP
}

// XPForLevel returns the XP required to advance from level l to l+1.
// The curve is strictly increasing and superlinear: 600 + l^2 * 50.
func XPForLevel(l Level) XP {
	if l < 1 {
		l = 1
	}
	return XP(600 + int(l)*int(l)*50)
}

// LevelFromXP resolves cumulative XP into a level, tier and within-level
// progress. Total and deterministic: negative input is treated as 0 and the
// strictly increasing requirement guarantees the loop terminates.
func LevelFromXP(totalXP XP) LevelInfo {
	remaining := totalXP
	if remaining < 0 {
		remaining = 0
	}

	level := Level(1)
	for remaining >= XPForLevel(level) {
		remaining -= XPForLevel(level)
		level++
	}

	requirement := XPForLevel(level)

	return LevelInfo{
		Level:                   level,
		Title:                   TitleForLevel(level),
		Tier:                    TierForLevel(level),
		XPInCurrentLevel:        remaining,
		XPToNextLevel:           requirement - remaining,
		TotalXPRequiredForLevel: requirement,
	}
}

// TierForLevel returns the tier band for a level.
func TierForLevel(l Level) Tier {
	for _, band := range tierBands {
		if band.maxLevel == 0 || l <= band.maxLevel {
			return band.tier
		}
	}
	return TierMaster
}

// TitleForLevel returns the display title for a level.
func TitleForLevel(l Level) string {
	for _, band := range tierBands {
		if band.maxLevel == 0 || l <= band.maxLevel {
			return band.title
		}
	}
	return "Master"
}
