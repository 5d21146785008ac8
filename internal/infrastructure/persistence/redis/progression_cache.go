package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionCache caches per-user progression snapshots and keeps the
// event duplicate fast path. Writers must invalidate after every committed
// state change; reads fall back to the repository on a miss.
type ProgressionCache struct {
	cache *Cache
}

// NewProgressionCache creates a new ProgressionCache.
func NewProgressionCache(cache *Cache) *ProgressionCache {
	return &ProgressionCache{cache: cache}
}

// progressionSnapshot is the cached JSON shape of a progression state.
// Only read-side fields are cached; Version is included so a cached read
// can still feed a conditional write.
type progressionSnapshot struct {
	UserID                  string    `json:"user_id"`
	OrganizationID          string    `json:"organization_id"`
	TotalXP                 int       `json:"total_xp"`
	Level                   int       `json:"level"`
	LevelTitle              string    `json:"level_title"`
	LevelTier               string    `json:"level_tier"`
	XPInCurrentLevel        int       `json:"xp_in_current_level"`
	XPToNextLevel           int       `json:"xp_to_next_level"`
	CurrentStreak           int       `json:"current_streak"`
	LongestStreak           int       `json:"longest_streak"`
	CompletedToday          bool      `json:"completed_today"`
	StreakAtRisk            bool      `json:"streak_at_risk"`
	StreakDays              [7]bool   `json:"streak_days"`
	TotalCampaignsCompleted int       `json:"total_campaigns_completed"`
	Badges                  []string  `json:"badges"`
	Version                 int64     `json:"version"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// GetSnapshot returns the cached snapshot, or ErrCacheMiss.
func (pc *ProgressionCache) GetSnapshot(ctx context.Context, userID string) (*progression.ProgressionState, error) {
	var snap progressionSnapshot
	if err := pc.cache.Get(ctx, ProgressionKey(userID), &snap); err != nil {
		return nil, err
	}

	state := &progression.ProgressionState{
		UserID:                  snap.UserID,
		OrganizationID:          snap.OrganizationID,
		TotalXP:                 progression.XP(snap.TotalXP),
		Level:                   progression.Level(snap.Level),
		LevelTitle:              snap.LevelTitle,
		LevelTier:               progression.Tier(snap.LevelTier),
		XPInCurrentLevel:        progression.XP(snap.XPInCurrentLevel),
		XPToNextLevel:           progression.XP(snap.XPToNextLevel),
		CurrentStreak:           snap.CurrentStreak,
		LongestStreak:           snap.LongestStreak,
		CompletedToday:          snap.CompletedToday,
		StreakAtRisk:            snap.StreakAtRisk,
		StreakDays:              snap.StreakDays,
		TotalCampaignsCompleted: snap.TotalCampaignsCompleted,
		Badges:                  snap.Badges,
		Version:                 snap.Version,
		UpdatedAt:               snap.UpdatedAt,
	}
	return state, nil
}

// SetSnapshot caches a snapshot of the state.
func (pc *ProgressionCache) SetSnapshot(ctx context.Context, state *progression.ProgressionState) error {
	if state == nil {
		return ErrCacheNilValue
	}

	snap := progressionSnapshot{
		UserID:                  state.UserID,
		OrganizationID:          state.OrganizationID,
		TotalXP:                 int(state.TotalXP),
		Level:                   int(state.Level),
		LevelTitle:              state.LevelTitle,
		LevelTier:               string(state.LevelTier),
		XPInCurrentLevel:        int(state.XPInCurrentLevel),
		XPToNextLevel:           int(state.XPToNextLevel),
		CurrentStreak:           state.CurrentStreak,
		LongestStreak:           state.LongestStreak,
		CompletedToday:          state.CompletedToday,
		StreakAtRisk:            state.StreakAtRisk,
		StreakDays:              state.StreakDays,
		TotalCampaignsCompleted: state.TotalCampaignsCompleted,
		Badges:                  state.Badges,
		Version:                 state.Version,
		UpdatedAt:               state.UpdatedAt,
	}

	return pc.cache.Set(ctx, ProgressionKey(state.UserID), snap, TTLProgressionSnapshot)
}

// Invalidate drops the cached snapshot for a user.
func (pc *ProgressionCache) Invalidate(ctx context.Context, userID string) error {
	return pc.cache.Delete(ctx, ProgressionKey(userID))
}

// ─────────────────────────────────────────────────────────────────────────────
// Event duplicate fast path
// ─────────────────────────────────────────────────────────────────────────────

// MarkEventSeen records an event id after commit. Returns true when this
// call was the first to record it.
func (pc *ProgressionCache) MarkEventSeen(ctx context.Context, userID, eventID string) (bool, error) {
	if userID == "" || eventID == "" {
		return false, ErrCacheKeyEmpty
	}
	return pc.cache.SetNX(ctx, EventSeenKey(userID, eventID), true, TTLEventSeen)
}

// WasEventSeen reports whether the event id is in the fast path. A false
// answer is not authoritative; callers still consult the durable ledger.
func (pc *ProgressionCache) WasEventSeen(ctx context.Context, userID, eventID string) (bool, error) {
	if userID == "" || eventID == "" {
		return false, ErrCacheKeyEmpty
	}
	seen, err := pc.cache.Exists(ctx, EventSeenKey(userID, eventID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check event fast path: %w", err)
	}
	return seen, nil
}
