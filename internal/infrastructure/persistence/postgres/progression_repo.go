package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/progression"
	"github.com/skillstream/progression-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionRepository implements progression.Repository for PostgreSQL.
// Save enforces optimistic concurrency on the version column.
type ProgressionRepository struct {
	conn *Connection
}

// NewProgressionRepository creates a new ProgressionRepository.
func NewProgressionRepository(conn *Connection) *ProgressionRepository {
	return &ProgressionRepository{conn: conn}
}

const progressionColumns = `
	user_id, organization_id, total_xp, level, level_title, level_tier,
	xp_in_current_level, xp_to_next_level, current_streak, longest_streak,
	completed_today, streak_at_risk, streak_days, total_campaigns_completed,
	badges, badge_details, version, created_at, updated_at
`

// Get returns the state for a user, or shared.ErrProgressionNotFound.
func (r *ProgressionRepository) Get(ctx context.Context, userID string) (*progression.ProgressionState, error) {
	query := `SELECT ` + progressionColumns + ` FROM progression_states WHERE user_id = $1`

	state, err := r.scanState(r.conn.QueryRow(ctx, query, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressionNotFound
		}
		return nil, fmt.Errorf("failed to get progression state: %w", err)
	}
	return state, nil
}

// GetOrCreate returns the state for a user, inserting the zero state first
// when none exists. Concurrent creators race on the primary key; the loser
// reads the winner's row.
func (r *ProgressionRepository) GetOrCreate(ctx context.Context, userID, organizationID string) (*progression.ProgressionState, error) {
	state, err := r.Get(ctx, userID)
	if err == nil {
		return state, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	fresh, err := progression.NewProgressionState(userID, organizationID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	insert := `
		INSERT INTO progression_states (` + progressionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (user_id) DO NOTHING
	`

	args, err := stateArgs(fresh)
	if err != nil {
		return nil, err
	}
	if _, err := r.conn.Exec(ctx, insert, args...); err != nil {
		return nil, fmt.Errorf("failed to create progression state: %w", err)
	}

	return r.Get(ctx, userID)
}

// Save writes the state if the stored version still equals expectedVersion.
// On success the in-memory Version is advanced to match the row.
func (r *ProgressionRepository) Save(ctx context.Context, state *progression.ProgressionState, expectedVersion int64) error {
	query := `
		UPDATE progression_states SET
			organization_id = $3,
			total_xp = $4,
			level = $5,
			level_title = $6,
			level_tier = $7,
			xp_in_current_level = $8,
			xp_to_next_level = $9,
			current_streak = $10,
			longest_streak = $11,
			completed_today = $12,
			streak_at_risk = $13,
			streak_days = $14,
			total_campaigns_completed = $15,
			badges = $16,
			badge_details = $17,
			version = version + 1,
			updated_at = $18
		WHERE user_id = $1 AND version = $2
	`

	streakDays, badges, badgeDetails, err := marshalStateJSON(state)
	if err != nil {
		return err
	}

	tag, err := r.conn.Exec(ctx, query,
		state.UserID,
		expectedVersion,
		state.OrganizationID,
		int(state.TotalXP),
		int(state.Level),
		state.LevelTitle,
		string(state.LevelTier),
		int(state.XPInCurrentLevel),
		int(state.XPToNextLevel),
		state.CurrentStreak,
		state.LongestStreak,
		state.CompletedToday,
		state.StreakAtRisk,
		streakDays,
		state.TotalCampaignsCompleted,
		badges,
		badgeDetails,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progression state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleProgression
	}

	state.Version = expectedVersion + 1
	return nil
}

// ListUserIDs returns all user ids with progression state.
func (r *ProgressionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT user_id FROM progression_states ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

// badgeAwardRow is the JSONB shape of one badge award log entry.
type badgeAwardRow struct {
	BadgeID   string    `json:"badge_id"`
	Category  string    `json:"category"`
	AwardedAt time.Time `json:"awarded_at"`
}

func (r *ProgressionRepository) scanState(row pgx.Row) (*progression.ProgressionState, error) {
	var (
		s            progression.ProgressionState
		totalXP      int
		level        int
		tier         string
		xpIn, xpTo   int
		streakDays   []byte
		badges       []byte
		badgeDetails []byte
	)

	err := row.Scan(
		&s.UserID,
		&s.OrganizationID,
		&totalXP,
		&level,
		&s.LevelTitle,
		&tier,
		&xpIn,
		&xpTo,
		&s.CurrentStreak,
		&s.LongestStreak,
		&s.CompletedToday,
		&s.StreakAtRisk,
		&streakDays,
		&s.TotalCampaignsCompleted,
		&badges,
		&badgeDetails,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.TotalXP = progression.XP(totalXP)
	s.Level = progression.Level(level)
	s.LevelTier = progression.Tier(tier)
	s.XPInCurrentLevel = progression.XP(xpIn)
	s.XPToNextLevel = progression.XP(xpTo)

	if err := json.Unmarshal(streakDays, &s.StreakDays); err != nil {
		return nil, fmt.Errorf("failed to unmarshal streak days: %w", err)
	}
	if err := json.Unmarshal(badges, &s.Badges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badges: %w", err)
	}

	var details []badgeAwardRow
	if err := json.Unmarshal(badgeDetails, &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badge details: %w", err)
	}
	for _, d := range details {
		s.BadgeDetails = append(s.BadgeDetails, progression.BadgeAward{
			BadgeID:   d.BadgeID,
			Category:  d.Category,
			AwardedAt: d.AwardedAt,
		})
	}

	return &s, nil
}

func marshalStateJSON(s *progression.ProgressionState) (streakDays, badges, badgeDetails []byte, err error) {
	streakDays, err = json.Marshal(s.StreakDays)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal streak days: %w", err)
	}

	if s.Badges == nil {
		badges = []byte("[]")
	} else if badges, err = json.Marshal(s.Badges); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal badges: %w", err)
	}

	details := make([]badgeAwardRow, 0, len(s.BadgeDetails))
	for _, d := range s.BadgeDetails {
		details = append(details, badgeAwardRow{
			BadgeID:   d.BadgeID,
			Category:  d.Category,
			AwardedAt: d.AwardedAt,
		})
	}
	badgeDetails, err = json.Marshal(details)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal badge details: %w", err)
	}

	return streakDays, badges, badgeDetails, nil
}

func stateArgs(s *progression.ProgressionState) ([]interface{}, error) {
	streakDays, badges, badgeDetails, err := marshalStateJSON(s)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		s.UserID,
		s.OrganizationID,
		int(s.TotalXP),
		int(s.Level),
		s.LevelTitle,
		string(s.LevelTier),
		int(s.XPInCurrentLevel),
		int(s.XPToNextLevel),
		s.CurrentStreak,
		s.LongestStreak,
		s.CompletedToday,
		s.StreakAtRisk,
		streakDays,
		s.TotalCampaignsCompleted,
		badges,
		badgeDetails,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT LEDGER IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EventLedgerRepository implements progression.EventLedger on the
// processed_events table. The primary key on (user_id, event_id) is what
// makes redelivered events detectable inside the same transaction that
// applied them.
type EventLedgerRepository struct {
	conn *Connection
}

// NewEventLedgerRepository creates a new EventLedgerRepository.
func NewEventLedgerRepository(conn *Connection) *EventLedgerRepository {
	return &EventLedgerRepository{conn: conn}
}

// IsProcessed reports whether the (userID, eventID) pair was already applied.
func (r *EventLedgerRepository) IsProcessed(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_events WHERE user_id = $1 AND event_id = $2)`,
		userID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return exists, nil
}

// MarkProcessed records the pair, failing with shared.ErrDuplicateEvent when
// it was already recorded.
func (r *EventLedgerRepository) MarkProcessed(ctx context.Context, userID, eventID string, processedAt time.Time) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO processed_events (user_id, event_id, processed_at) VALUES ($1, $2, $3)`,
		userID, eventID, processedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
