package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPForLevel_Curve(t *testing.T) {
	assert.Equal(t, XP(650), XPForLevel(1))
	assert.Equal(t, XP(800), XPForLevel(2))
	assert.Equal(t, XP(1050), XPForLevel(3))
	assert.Equal(t, XP(5600), XPForLevel(10))

	// Negative and zero levels clamp to the level-1 requirement.
	assert.Equal(t, XPForLevel(1), XPForLevel(0))
	assert.Equal(t, XPForLevel(1), XPForLevel(-3))
}

func TestXPForLevel_StrictlyIncreasing(t *testing.T) {
	for l := Level(1); l < 100; l++ {
		assert.Less(t, XPForLevel(l), XPForLevel(l+1), "level %d", l)
	}
}

func TestLevelFromXP_Boundaries(t *testing.T) {
	// One XP short of the first boundary stays at level 1.
	info := LevelFromXP(649)
	assert.Equal(t, Level(1), info.Level)
	assert.Equal(t, XP(649), info.XPInCurrentLevel)
	assert.Equal(t, XP(1), info.XPToNextLevel)

	// Exactly the boundary rolls over with zero progress into level 2.
	info = LevelFromXP(650)
	assert.Equal(t, Level(2), info.Level)
	assert.Equal(t, XP(0), info.XPInCurrentLevel)
	assert.Equal(t, XP(800), info.XPToNextLevel)
	assert.Equal(t, XP(800), info.TotalXPRequiredForLevel)

	// 650 + 800 reaches level 3.
	info = LevelFromXP(1450)
	assert.Equal(t, Level(3), info.Level)
	assert.Equal(t, XP(0), info.XPInCurrentLevel)
}

func TestLevelFromXP_ZeroAndNegative(t *testing.T) {
	info := LevelFromXP(0)
	assert.Equal(t, Level(1), info.Level)
	assert.Equal(t, XP(0), info.XPInCurrentLevel)
	assert.Equal(t, XP(650), info.XPToNextLevel)

	// Negative totals are treated as zero, never a level below 1.
	assert.Equal(t, LevelFromXP(0), LevelFromXP(-500))
}

func TestLevelFromXP_Monotonic(t *testing.T) {
	prev := LevelFromXP(0).Level
	for total := XP(0); total <= 100_000; total += 137 {
		cur := LevelFromXP(total).Level
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestTierForLevel(t *testing.T) {
	tests := []struct {
		level Level
		tier  Tier
		title string
	}{
		{1, TierNewcomer, "Newcomer"},
		{5, TierNewcomer, "Newcomer"},
		{6, TierLearner, "Learner"},
		{15, TierLearner, "Learner"},
		{16, TierAchiever, "Achiever"},
		{30, TierAchiever, "Achiever"},
		{31, TierExpert, "Expert"},
		{50, TierExpert, "Expert"},
		{51, TierMaster, "Master"},
		{120, TierMaster, "Master"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.tier, TierForLevel(tt.level), "level %d", tt.level)
		assert.Equal(t, tt.title, TitleForLevel(tt.level), "level %d", tt.level)
	}
}
