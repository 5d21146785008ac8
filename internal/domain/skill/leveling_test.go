package skill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

func newTestProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := NewProfile("user-1", "skill-1", "comp-1", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return p
}

func apply(t *testing.T, p *Profile, scores ...int) Transition {
	t.Helper()
	var last Transition
	for i, score := range scores {
		tr, err := UpdateSkill(p, score, time.Date(2026, time.March, 1+i, 12, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		last = tr
	}
	return last
}

func TestUpdateSkill_PromotionAfterFiveQualifyingScores(t *testing.T) {
	p := newTestProfile(t)

	apply(t, p, 55, 60, 70, 50)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 4, p.ConsecutiveAboveThreshold)

	tr := apply(t, p, 90)
	assert.True(t, tr.Promoted)
	assert.Equal(t, 1, tr.LevelBefore)
	assert.Equal(t, 2, tr.LevelAfter)
	assert.Equal(t, 2, p.Level)
	// Counter resets on promotion; the run toward level 3 starts fresh.
	assert.Equal(t, 0, p.ConsecutiveAboveThreshold)
}

func TestUpdateSkill_NeutralScoreResetsRun(t *testing.T) {
	p := newTestProfile(t)

	apply(t, p, 55, 60, 70, 50)
	require.Equal(t, 4, p.ConsecutiveAboveThreshold)

	// 49 is below the level-2 minimum but cannot demote at level 1, so it
	// only breaks the promotion run.
	tr := apply(t, p, 49)
	assert.False(t, tr.Promoted)
	assert.False(t, tr.Demoted)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.ConsecutiveAboveThreshold)
}

func TestUpdateSkill_DemotionAfterThreeLowScores(t *testing.T) {
	p := newTestProfile(t)
	p.Level = 3

	tr := apply(t, p, 40, 30)
	assert.False(t, tr.Demoted)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, -2, p.ConsecutiveAboveThreshold)

	tr = apply(t, p, 50)
	assert.True(t, tr.Demoted)
	assert.Equal(t, 3, tr.LevelBefore)
	assert.Equal(t, 2, tr.LevelAfter)
	assert.Equal(t, 0, p.ConsecutiveAboveThreshold)
}

func TestUpdateSkill_NeutralScoreResetsDemotionRun(t *testing.T) {
	p := newTestProfile(t)
	p.Level = 3

	apply(t, p, 40, 30)
	require.Equal(t, -2, p.ConsecutiveAboveThreshold)

	// 70 is neither qualifying for level 4 (needs 80) nor below the level-3
	// minimum (65), so the demotion run resets.
	apply(t, p, 70)
	assert.Equal(t, 0, p.ConsecutiveAboveThreshold)
	assert.Equal(t, 3, p.Level)
}

func TestUpdateSkill_DirectionFlipRestartsCounter(t *testing.T) {
	p := newTestProfile(t)
	p.Level = 3

	apply(t, p, 40, 30)
	require.Equal(t, -2, p.ConsecutiveAboveThreshold)

	// A qualifying score flips the counter to a fresh promotion run.
	apply(t, p, 85)
	assert.Equal(t, 1, p.ConsecutiveAboveThreshold)
}

func TestUpdateSkill_LevelBounds(t *testing.T) {
	p := newTestProfile(t)

	// Level 1 never demotes regardless of how many low scores arrive.
	apply(t, p, 10, 10, 10, 10, 10)
	assert.Equal(t, 1, p.Level)

	// Level 5 never promotes further.
	p5 := newTestProfile(t)
	p5.Level = 5
	for i := 0; i < 40; i++ {
		apply(t, p5, 100)
	}
	assert.Equal(t, 5, p5.Level)
}

func TestUpdateSkill_FullClimbToLevelThree(t *testing.T) {
	p := newTestProfile(t)

	// Five scores >= 50 reach level 2, then ten scores >= 65 reach level 3.
	for i := 0; i < 5; i++ {
		apply(t, p, 60)
	}
	require.Equal(t, 2, p.Level)

	for i := 0; i < 10; i++ {
		apply(t, p, 70)
	}
	assert.Equal(t, 3, p.Level)
}

func TestUpdateSkill_InvalidScore(t *testing.T) {
	p := newTestProfile(t)

	_, err := UpdateSkill(p, -1, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidScore)

	_, err = UpdateSkill(p, 101, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidScore)

	// A rejected score must not touch the profile.
	assert.Equal(t, 0, p.AssessmentCount)
}

func TestRecordScore_RunningStatsAndHistory(t *testing.T) {
	p := newTestProfile(t)

	apply(t, p, 40, 60, 80)
	assert.Equal(t, 3, p.AssessmentCount)
	assert.Equal(t, 80, p.CurrentScore)
	assert.InDelta(t, 60.0, p.AverageScore, 1e-9)

	// History is most recent first and capped at ten entries.
	for i := 0; i < 12; i++ {
		apply(t, p, 50)
	}
	assert.Len(t, p.History, 10)
	assert.Equal(t, 50, p.History[0].Score)
}
