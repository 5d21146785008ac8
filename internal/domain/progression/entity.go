package progression

import (
	"time"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// ProgressionState is the per-user progression aggregate. It is owned and
// mutated exclusively by the orchestrator; reporting collaborators only read
// it. All writes go through an optimistic-concurrency check on Version.
type ProgressionState struct {
	// UserID identifies the owning user.
	UserID string

	// OrganizationID identifies the user's organization.
	OrganizationID string

	// TotalXP is cumulative experience, never decreasing.
	TotalXP XP

	// Level and its derived display fields, recomputed from TotalXP on
	// every award so they can never drift from the curve.
	Level            Level
	LevelTitle       string
	LevelTier        Tier
	XPInCurrentLevel XP
	XPToNextLevel    XP

	// Streak summary, maintained by the streak engine.
	CurrentStreak  int
	LongestStreak  int
	CompletedToday bool
	StreakAtRisk   bool

	// StreakDays is the Monday-first completion map for the current ISO week.
	StreakDays [7]bool

	// TotalCampaignsCompleted counts distinct campaign completion events.
	TotalCampaignsCompleted int

	// Badges is the append-only set of owned badge ids.
	Badges []string

	// BadgeDetails is the ordered award log, oldest first.
	BadgeDetails []BadgeAward

	// Version is the optimistic-concurrency token. Incremented by the
	// repository on every successful save.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BadgeAward is one immutable entry in the badge award log.
type BadgeAward struct {
	BadgeID   string
	Category  string
	AwardedAt time.Time
}

// NewProgressionState creates the zero-progress state for a user.
func NewProgressionState(userID, organizationID string, now time.Time) (*ProgressionState, error) {
	if userID == "" {
		return nil, shared.NewDomainError("progression", "Create", shared.ErrInvalidID, "user id is required")
	}

	s := &ProgressionState{
		UserID:         userID,
		OrganizationID: organizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.recalculateLevel()
	return s, nil
}

// ApplyAward adds earned XP and refreshes the derived level fields.
func (s *ProgressionState) ApplyAward(a Award, now time.Time) {
	s.TotalXP = s.TotalXP.Add(a.XPEarned)
	s.recalculateLevel()
	s.UpdatedAt = now
}

// ApplyStreak copies a streak summary produced by the streak engine.
func (s *ProgressionState) ApplyStreak(current, longest int, completedToday, atRisk bool, week [7]bool, now time.Time) {
	s.CurrentStreak = current
	if longest > s.LongestStreak {
		s.LongestStreak = longest
	}
	s.CompletedToday = completedToday
	s.StreakAtRisk = atRisk
	s.StreakDays = week
	s.UpdatedAt = now
}

// RecordCampaignCompletion increments the completed-campaign counter.
func (s *ProgressionState) RecordCampaignCompletion(now time.Time) {
	s.TotalCampaignsCompleted++
	s.UpdatedAt = now
}

// HasBadge reports whether the badge id is already owned.
func (s *ProgressionState) HasBadge(badgeID string) bool {
	for _, id := range s.Badges {
		if id == badgeID {
			return true
		}
	}
	return false
}

// OwnedBadgeSet returns the owned badge ids as a set.
func (s *ProgressionState) OwnedBadgeSet() map[string]bool {
	owned := make(map[string]bool, len(s.Badges))
	for _, id := range s.Badges {
		owned[id] = true
	}
	return owned
}

// AddBadge appends a badge to the owned set and the award log.
// Awards are append-only: adding an already-owned badge is rejected so a
// replayed award can never duplicate log entries.
func (s *ProgressionState) AddBadge(badgeID, category string, now time.Time) error {
	if s.HasBadge(badgeID) {
		return shared.ErrDuplicateBadge
	}

	s.Badges = append(s.Badges, badgeID)
	s.BadgeDetails = append(s.BadgeDetails, BadgeAward{
		BadgeID:   badgeID,
		Category:  category,
		AwardedAt: now,
	})
	s.UpdatedAt = now
	return nil
}

// recalculateLevel refreshes the level fields from TotalXP.
func (s *ProgressionState) recalculateLevel() {
	info := LevelFromXP(s.TotalXP)
	s.Level = info.Level
	s.LevelTitle = info.Title
	s.LevelTier = info.Tier
	s.XPInCurrentLevel = info.XPInCurrentLevel
	s.XPToNextLevel = info.XPToNextLevel
}

// Clone creates a deep copy of the state.
func (s *ProgressionState) Clone() *ProgressionState {
	if s == nil {
		return nil
	}

	clone := *s
	clone.Badges = append([]string(nil), s.Badges...)
	clone.BadgeDetails = append([]BadgeAward(nil), s.BadgeDetails...)
	return &clone
}
