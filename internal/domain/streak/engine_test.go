package streak

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	n := 0
	return NewEngine(func() string {
		n++
		return fmt.Sprintf("streak-%d", n)
	})
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func at(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.UTC)
}

func TestRecordCompletion_Started(t *testing.T) {
	e := testEngine()

	result, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 14), 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeStarted, result.Outcome)
	assert.Nil(t, result.Archived)
	assert.Empty(t, result.MilestonesCrossed)

	require.NotNil(t, result.Current)
	assert.Equal(t, "user-1", result.Current.UserID)
	assert.Equal(t, 1, result.Current.Length)
	assert.Equal(t, StatusActive, result.Current.Status)
	assert.True(t, result.Current.ContainsDate(day(2026, time.March, 2)))
	assert.True(t, result.Current.HasCampaign("camp-1"))
}

func TestRecordCompletion_ContinuedSameDay(t *testing.T) {
	e := testEngine()

	first, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 9), 0)
	require.NoError(t, err)

	second, err := e.RecordCompletion(first.Current, "user-1", "camp-2", at(2026, time.March, 2, 18), 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeContinuedSameDay, second.Outcome)
	assert.Equal(t, 1, second.Current.Length)
	assert.True(t, second.Current.HasCampaign("camp-1"))
	assert.True(t, second.Current.HasCampaign("camp-2"))
	assert.Empty(t, second.MilestonesCrossed)
}

func TestRecordCompletion_ContinuedNextDay(t *testing.T) {
	e := testEngine()

	first, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 9), 0)
	require.NoError(t, err)

	second, err := e.RecordCompletion(first.Current, "user-1", "camp-2", at(2026, time.March, 3, 7), 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeContinuedNextDay, second.Outcome)
	assert.Equal(t, 2, second.Current.Length)
	assert.Equal(t, day(2026, time.March, 3), second.Current.LastActiveDate())
	assert.Nil(t, second.Archived)
}

func TestRecordCompletion_BrokenAndRestarted(t *testing.T) {
	e := testEngine()

	first, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 9), 0)
	require.NoError(t, err)

	// Two-day gap breaks the streak.
	second, err := e.RecordCompletion(first.Current, "user-1", "camp-2", at(2026, time.March, 4, 9), 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeBrokenAndRestarted, second.Outcome)

	require.NotNil(t, second.Archived)
	assert.Equal(t, StatusBroken, second.Archived.Status)
	assert.Equal(t, 1, second.Archived.Length)
	require.NotNil(t, second.Archived.EndDate)
	assert.Equal(t, day(2026, time.March, 2), *second.Archived.EndDate)
	assert.True(t, second.Archived.LongestInHistory)

	assert.Equal(t, 1, second.Current.Length)
	assert.Equal(t, StatusActive, second.Current.Status)
	assert.NotEqual(t, second.Archived.ID, second.Current.ID)
}

func TestRecordCompletion_LongestInHistoryFlag(t *testing.T) {
	e := testEngine()

	first, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 9), 0)
	require.NoError(t, err)

	// A previous archived streak of length 5 beats the breaking length 1.
	second, err := e.RecordCompletion(first.Current, "user-1", "camp-2", at(2026, time.March, 10, 9), 5)
	require.NoError(t, err)

	require.NotNil(t, second.Archived)
	assert.False(t, second.Archived.LongestInHistory)
}

func TestRecordCompletion_MilestonesCrossed(t *testing.T) {
	e := testEngine()

	result, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 1, 12), 0)
	require.NoError(t, err)

	// Grow the streak day by day; milestones fire exactly once at 3 and 7.
	var crossed []int
	for i := 2; i <= 8; i++ {
		result, err = e.RecordCompletion(result.Current, "user-1", fmt.Sprintf("camp-%d", i), at(2026, time.March, i, 12), 0)
		require.NoError(t, err)
		crossed = append(crossed, result.MilestonesCrossed...)
	}

	assert.Equal(t, []int{3, 7}, crossed)
	assert.Equal(t, 8, result.Current.Length)
}

func TestRecordCompletion_RequiresUserID(t *testing.T) {
	e := testEngine()

	_, err := e.RecordCompletion(nil, "", "camp-1", at(2026, time.March, 2, 9), 0)
	assert.Error(t, err)
}

func TestAtRisk(t *testing.T) {
	e := testEngine()

	result, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 9), 0)
	require.NoError(t, err)

	// Active today: not at risk.
	assert.False(t, AtRisk(result.Current, at(2026, time.March, 2, 20)))

	// Last active yesterday, nothing today yet: at risk.
	assert.True(t, AtRisk(result.Current, at(2026, time.March, 3, 8)))

	// Two days later the streak is already gone, not at risk.
	assert.False(t, AtRisk(result.Current, at(2026, time.March, 4, 8)))

	assert.False(t, AtRisk(nil, at(2026, time.March, 3, 8)))
}

func TestExpired(t *testing.T) {
	e := testEngine()

	result, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 9), 0)
	require.NoError(t, err)

	assert.False(t, Expired(result.Current, at(2026, time.March, 2, 23)))
	assert.False(t, Expired(result.Current, at(2026, time.March, 3, 23)))
	assert.True(t, Expired(result.Current, at(2026, time.March, 4, 0)))
	assert.False(t, Expired(nil, at(2026, time.March, 4, 0)))
}

func TestExpire(t *testing.T) {
	e := testEngine()

	result, err := e.RecordCompletion(nil, "user-1", "camp-1", at(2026, time.March, 2, 9), 0)
	require.NoError(t, err)

	// Not yet broken: no-op.
	assert.False(t, Expire(result.Current, 0, at(2026, time.March, 3, 8)))
	assert.Equal(t, StatusActive, result.Current.Status)

	// Broken: archived with the personal-best flag resolved.
	assert.True(t, Expire(result.Current, 0, at(2026, time.March, 5, 1)))
	assert.Equal(t, StatusBroken, result.Current.Status)
	assert.True(t, result.Current.LongestInHistory)
	require.NotNil(t, result.Current.EndDate)
	assert.Equal(t, day(2026, time.March, 2), *result.Current.EndDate)
}

func TestWeekArray(t *testing.T) {
	// 2026-03-02 is a Monday.
	dates := []time.Time{
		day(2026, time.March, 2), // Monday
		day(2026, time.March, 3), // Tuesday
		day(2026, time.March, 6), // Friday
		day(2026, time.February, 27), // previous week, ignored
		day(2026, time.March, 9),  // next week, ignored
	}

	week := WeekArray(dates, at(2026, time.March, 5, 12))
	assert.Equal(t, [7]bool{true, true, false, false, true, false, false}, week)
}

func TestWeekArray_SpansBrokenStreaks(t *testing.T) {
	// Monday and Tuesday from an archived streak, Thursday from the new one.
	dates := []time.Time{
		day(2026, time.March, 2),
		day(2026, time.March, 3),
		day(2026, time.March, 5),
	}

	week := WeekArray(dates, at(2026, time.March, 5, 18))
	assert.Equal(t, [7]bool{true, true, false, true, false, false, false}, week)
}
