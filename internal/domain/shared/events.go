package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types emitted by the progression engine. Each one is
// notification-worthy: the external dispatcher turns them into user-visible
// messages, the engine itself never does.
const (
	EventLevelUp           EventType = "progression.level_up"
	EventXPAwarded         EventType = "progression.xp_awarded"
	EventStreakStarted     EventType = "streak.started"
	EventStreakMilestone   EventType = "streak.milestone"
	EventStreakBroken      EventType = "streak.broken"
	EventSkillLeveledUp    EventType = "skill.leveled_up"
	EventSkillLeveledDown  EventType = "skill.leveled_down"
	EventBadgeEarned       EventType = "badge.earned"
	EventCampaignCompleted EventType = "campaign.completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	// For progression events this is always the user id.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single domain event.
type EventHandler func(event Event) error

// EventBus publishes domain events to subscribed handlers.
type EventBus interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
	Publish(event Event) error
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, userID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: userID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a user's cumulative XP crosses a level boundary.
type LevelUpEvent struct {
	BaseEvent
	LevelBefore int    `json:"level_before"`
	LevelAfter  int    `json:"level_after"`
	LevelTitle  string `json:"level_title"`
	TotalXP     int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"level_before": e.LevelBefore,
		"level_after":  e.LevelAfter,
		"level_title":  e.LevelTitle,
		"total_xp":     e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, at time.Time, before, after int, title string, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:   NewBaseEvent(EventLevelUp, userID, at),
		LevelBefore: before,
		LevelAfter:  after,
		LevelTitle:  title,
		TotalXP:     totalXP,
	}
}

// XPAwardedEvent is emitted for every successful XP award.
type XPAwardedEvent struct {
	BaseEvent
	Action   string `json:"action"`
	XPEarned int    `json:"xp_earned"`
	TotalXP  int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"action":    e.Action,
		"xp_earned": e.XPEarned,
		"total_xp":  e.TotalXP,
	}
}

// NewXPAwardedEvent creates a new XPAwardedEvent.
func NewXPAwardedEvent(userID string, at time.Time, action string, earned, total int) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, userID, at),
		Action:    action,
		XPEarned:  earned,
		TotalXP:   total,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakStartedEvent is emitted when a user starts a fresh streak.
type StreakStartedEvent struct {
	BaseEvent
	StreakLength int `json:"streak_length"`
}

// Payload implements Event interface.
func (e StreakStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"streak_length": e.StreakLength,
	}
}

// NewStreakStartedEvent creates a new StreakStartedEvent.
func NewStreakStartedEvent(userID string, at time.Time) StreakStartedEvent {
	return StreakStartedEvent{
		BaseEvent:    NewBaseEvent(EventStreakStarted, userID, at),
		StreakLength: 1,
	}
}

// StreakMilestoneEvent is emitted when a streak crosses a milestone length.
type StreakMilestoneEvent struct {
	BaseEvent
	Milestone    int `json:"milestone"`
	StreakLength int `json:"streak_length"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"milestone":     e.Milestone,
		"streak_length": e.StreakLength,
	}
}

// NewStreakMilestoneEvent creates a new StreakMilestoneEvent.
func NewStreakMilestoneEvent(userID string, at time.Time, milestone, length int) StreakMilestoneEvent {
	return StreakMilestoneEvent{
		BaseEvent:    NewBaseEvent(EventStreakMilestone, userID, at),
		Milestone:    milestone,
		StreakLength: length,
	}
}

// StreakBrokenEvent is emitted when an active streak is archived after a gap.
type StreakBrokenEvent struct {
	BaseEvent
	BrokenLength     int  `json:"broken_length"`
	LongestInHistory bool `json:"longest_in_history"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"broken_length":      e.BrokenLength,
		"longest_in_history": e.LongestInHistory,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, at time.Time, length int, longest bool) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:        NewBaseEvent(EventStreakBroken, userID, at),
		BrokenLength:     length,
		LongestInHistory: longest,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Skill Events
// ═══════════════════════════════════════════════════════════════════════════

// SkillLeveledUpEvent is emitted when a skill is promoted to a higher level.
type SkillLeveledUpEvent struct {
	BaseEvent
	SkillID      string `json:"skill_id"`
	CompetencyID string `json:"competency_id"`
	LevelBefore  int    `json:"level_before"`
	LevelAfter   int    `json:"level_after"`
}

// Payload implements Event interface.
func (e SkillLeveledUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"skill_id":      e.SkillID,
		"competency_id": e.CompetencyID,
		"level_before":  e.LevelBefore,
		"level_after":   e.LevelAfter,
	}
}

// NewSkillLeveledUpEvent creates a new SkillLeveledUpEvent.
func NewSkillLeveledUpEvent(userID string, at time.Time, skillID, competencyID string, before, after int) SkillLeveledUpEvent {
	return SkillLeveledUpEvent{
		BaseEvent:    NewBaseEvent(EventSkillLeveledUp, userID, at),
		SkillID:      skillID,
		CompetencyID: competencyID,
		LevelBefore:  before,
		LevelAfter:   after,
	}
}

// SkillLeveledDownEvent is emitted when a skill is demoted one level after
// sustained sub-threshold scores.
type SkillLeveledDownEvent struct {
	BaseEvent
	SkillID      string `json:"skill_id"`
	CompetencyID string `json:"competency_id"`
	LevelBefore  int    `json:"level_before"`
	LevelAfter   int    `json:"level_after"`
}

// Payload implements Event interface.
func (e SkillLeveledDownEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"skill_id":      e.SkillID,
		"competency_id": e.CompetencyID,
		"level_before":  e.LevelBefore,
		"level_after":   e.LevelAfter,
	}
}

// NewSkillLeveledDownEvent creates a new SkillLeveledDownEvent.
func NewSkillLeveledDownEvent(userID string, at time.Time, skillID, competencyID string, before, after int) SkillLeveledDownEvent {
	return SkillLeveledDownEvent{
		BaseEvent:    NewBaseEvent(EventSkillLeveledDown, userID, at),
		SkillID:      skillID,
		CompetencyID: competencyID,
		LevelBefore:  before,
		LevelAfter:   after,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// BadgeEarnedEvent is emitted when one or more badges are newly awarded.
type BadgeEarnedEvent struct {
	BaseEvent
	BadgeIDs []string `json:"badge_ids"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_ids": e.BadgeIDs,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(userID string, at time.Time, badgeIDs []string) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, userID, at),
		BadgeIDs:  badgeIDs,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Campaign Events
// ═══════════════════════════════════════════════════════════════════════════

// CampaignCompletedEvent is emitted after a campaign completion has been
// fully applied (streak, xp, badges).
type CampaignCompletedEvent struct {
	BaseEvent
	CampaignID     string `json:"campaign_id"`
	OrganizationID string `json:"organization_id"`
	XPEarned       int    `json:"xp_earned"`
	StreakLength   int    `json:"streak_length"`
}

// Payload implements Event interface.
func (e CampaignCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"campaign_id":     e.CampaignID,
		"organization_id": e.OrganizationID,
		"xp_earned":       e.XPEarned,
		"streak_length":   e.StreakLength,
	}
}

// NewCampaignCompletedEvent creates a new CampaignCompletedEvent.
func NewCampaignCompletedEvent(userID string, at time.Time, campaignID, orgID string, xp, streak int) CampaignCompletedEvent {
	return CampaignCompletedEvent{
		BaseEvent:      NewBaseEvent(EventCampaignCompleted, userID, at),
		CampaignID:     campaignID,
		OrganizationID: orgID,
		XPEarned:       xp,
		StreakLength:   streak,
	}
}
