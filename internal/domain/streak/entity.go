// Package streak maintains per-user day-streak records: consecutive calendar
// days with at least one qualifying campaign completion. At most one record
// per user is active at any time; a broken streak is archived, never reused.
package streak

import (
	"time"

	"github.com/skillstream/progression-engine/pkg/timeutil"
)

// Status is the lifecycle status of a streak record.
type Status string

const (
	// StatusActive marks the single live streak of a user.
	StatusActive Status = "active"

	// StatusBroken marks an archived streak that ended with a gap.
	StatusBroken Status = "broken"
)

// Record is one streak of consecutive active days.
type Record struct {
	// ID is the record identifier.
	ID string

	// UserID identifies the owning user.
	UserID string

	// StartDate is the first active day (platform midnight).
	StartDate time.Time

	// EndDate is the last active day, set when the streak breaks.
	// Nil while the streak is active.
	EndDate *time.Time

	// Length is the number of consecutive active days, always >= 1.
	Length int

	// Status is active or broken.
	Status Status

	// ActiveDates holds one platform midnight per active day, ascending.
	ActiveDates []time.Time

	// CompletedCampaignIDs is the set of campaigns completed during the streak.
	CompletedCampaignIDs []string

	// LongestInHistory is computed at break time: true when the archived
	// length exceeded every previously archived streak of the user.
	LongestInHistory bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord starts a fresh length-1 streak for a completion on day.
func NewRecord(id, userID, campaignID string, day time.Time, now time.Time) *Record {
	start := timeutil.StartOfDay(day)
	r := &Record{
		ID:          id,
		UserID:      userID,
		StartDate:   start,
		Length:      1,
		Status:      StatusActive,
		ActiveDates: []time.Time{start},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.addCampaign(campaignID)
	return r
}

// IsActive reports whether the record is the user's live streak.
func (r *Record) IsActive() bool {
	return r != nil && r.Status == StatusActive
}

// LastActiveDate returns the most recent active day.
func (r *Record) LastActiveDate() time.Time {
	if r == nil || len(r.ActiveDates) == 0 {
		return time.Time{}
	}
	return r.ActiveDates[len(r.ActiveDates)-1]
}

// ContainsDate reports whether day is one of the streak's active days.
func (r *Record) ContainsDate(day time.Time) bool {
	if r == nil {
		return false
	}
	for _, d := range r.ActiveDates {
		if timeutil.SameDay(d, day) {
			return true
		}
	}
	return false
}

// HasCampaign reports whether the campaign is already in the streak's set.
func (r *Record) HasCampaign(campaignID string) bool {
	if r == nil {
		return false
	}
	for _, id := range r.CompletedCampaignIDs {
		if id == campaignID {
			return true
		}
	}
	return false
}

// addCampaign adds a campaign id to the set, ignoring duplicates and blanks.
func (r *Record) addCampaign(campaignID string) {
	if campaignID == "" || r.HasCampaign(campaignID) {
		return
	}
	r.CompletedCampaignIDs = append(r.CompletedCampaignIDs, campaignID)
}

// extend appends day as the next consecutive active day.
func (r *Record) extend(day time.Time, now time.Time) {
	r.ActiveDates = append(r.ActiveDates, timeutil.StartOfDay(day))
	r.Length++
	r.UpdatedAt = now
}

// archive transitions the record to broken, recording whether it was the
// longest the user has ever had.
func (r *Record) archive(longestBefore int, now time.Time) {
	end := r.LastActiveDate()
	r.EndDate = &end
	r.Status = StatusBroken
	r.LongestInHistory = r.Length > longestBefore
	r.UpdatedAt = now
}
