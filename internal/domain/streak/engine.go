package streak

import (
	"time"

	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/pkg/timeutil"
)

// Outcome classifies what a campaign completion did to the user's streak.
type Outcome string

const (
	// OutcomeStarted means the user had no active streak and a new
	// length-1 streak was created.
	OutcomeStarted Outcome = "started"

	// OutcomeContinuedSameDay means the day was already active; the
	// length did not change.
	OutcomeContinuedSameDay Outcome = "continued-same-day"

	// OutcomeContinuedNextDay means the completion landed exactly one day
	// after the last active day and the streak grew by one.
	OutcomeContinuedNextDay Outcome = "continued-next-day"

	// OutcomeBrokenAndRestarted means a gap of two or more days was found;
	// the old streak was archived and a fresh length-1 streak started.
	OutcomeBrokenAndRestarted Outcome = "broken-and-restarted"
)

// Milestones are the streak lengths that emit a milestone event when first
// reached, ascending.
var Milestones = []int{3, 7, 14, 30, 60, 90, 180, 365}

// CompletionResult describes the streak transition caused by one completion.
type CompletionResult struct {
	// Outcome is the transition kind.
	Outcome Outcome

	// Current is the active streak after the transition.
	Current *Record

	// Archived is the streak that broke, when Outcome is
	// broken-and-restarted. Nil otherwise.
	Archived *Record

	// MilestonesCrossed lists milestone lengths newly reached by this
	// completion, ascending. Empty for all outcomes except
	// continued-next-day.
	MilestonesCrossed []int
}

// Engine applies completions to streak records. It is pure aside from the
// injected id generator; persistence belongs to the caller.
type Engine struct {
	newID func() string
}

// NewEngine creates a streak engine with the given record id generator.
func NewEngine(newID func() string) *Engine {
	return &Engine{newID: newID}
}

// RecordCompletion transitions the user's streak for a campaign completed at
// the given time. active is the user's current active record, nil when none
// exists. longestBefore is the longest archived streak length the user has
// ever had, used to flag a personal best when the active streak breaks.
//
// The transition depends only on calendar days in the platform timezone:
//
//	no active streak          -> started (length 1)
//	same day as last active   -> continued-same-day (no change)
//	exactly the next day      -> continued-next-day (+1, may cross milestones)
//	gap of two or more days   -> broken-and-restarted (archive + new length 1)
func (e *Engine) RecordCompletion(active *Record, userID, campaignID string, completedAt time.Time, longestBefore int) (CompletionResult, error) {
	if userID == "" {
		return CompletionResult{}, shared.NewDomainError("streak", "RecordCompletion", shared.ErrInvalidID, "user id is required")
	}

	day := timeutil.StartOfDay(timeutil.ToPlatform(completedAt))
	now := completedAt

	if !active.IsActive() {
		return CompletionResult{
			Outcome: OutcomeStarted,
			Current: NewRecord(e.newID(), userID, campaignID, day, now),
		}, nil
	}

	last := active.LastActiveDate()
	gap := timeutil.DaysBetween(last, day)

	switch {
	case gap <= 0:
		// A completion on an already-active day (or a clock skew into the
		// past) keeps the streak as it is.
		active.addCampaign(campaignID)
		active.UpdatedAt = now
		return CompletionResult{
			Outcome: OutcomeContinuedSameDay,
			Current: active,
		}, nil

	case gap == 1:
		before := active.Length
		active.extend(day, now)
		active.addCampaign(campaignID)
		return CompletionResult{
			Outcome:           OutcomeContinuedNextDay,
			Current:           active,
			MilestonesCrossed: milestonesCrossed(before, active.Length),
		}, nil

	default:
		active.archive(longestBefore, now)
		return CompletionResult{
			Outcome:  OutcomeBrokenAndRestarted,
			Current:  NewRecord(e.newID(), userID, campaignID, day, now),
			Archived: active,
		}, nil
	}
}

// milestonesCrossed returns milestones M with before < M <= after.
func milestonesCrossed(before, after int) []int {
	var crossed []int
	for _, m := range Milestones {
		if before < m && m <= after {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// AtRisk reports whether the streak would break if the user does not
// complete a campaign before the day ends: the streak is active, today has
// no completion yet, and the last active day was yesterday.
func AtRisk(active *Record, now time.Time) bool {
	if !active.IsActive() {
		return false
	}
	today := timeutil.ToPlatform(now)
	last := active.LastActiveDate()
	return !timeutil.SameDay(last, today) && timeutil.IsYesterday(last, today)
}

// Expired reports whether the active streak has already broken: its last
// active day is two or more days in the past.
func Expired(active *Record, now time.Time) bool {
	if !active.IsActive() {
		return false
	}
	return timeutil.DaysBetween(active.LastActiveDate(), timeutil.ToPlatform(now)) >= 2
}

// Expire archives an active streak that has already broken. Returns true
// when the record was archived. Used by the nightly rollover; the
// completion path archives lazily through RecordCompletion instead.
func Expire(active *Record, longestBefore int, now time.Time) bool {
	if !Expired(active, now) {
		return false
	}
	active.archive(longestBefore, now)
	return true
}

// WeekArray builds the Monday-first completion map for the ISO week that
// contains now, from the given active days. Days can come from more than one
// record since a break inside the week must still show its earlier days.
func WeekArray(activeDates []time.Time, now time.Time) [7]bool {
	var week [7]bool
	weekStart := timeutil.StartOfWeek(timeutil.ToPlatform(now))
	for _, d := range activeDates {
		idx := timeutil.DaysBetween(weekStart, d)
		if idx >= 0 && idx < 7 {
			week[idx] = true
		}
	}
	return week
}
