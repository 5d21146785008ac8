package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/skill"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SkillRepository implements skill.Repository for PostgreSQL. The
// scored_videos table backs the once-per-video idempotency guarantee.
type SkillRepository struct {
	conn *Connection
}

// NewSkillRepository creates a new SkillRepository.
func NewSkillRepository(conn *Connection) *SkillRepository {
	return &SkillRepository{conn: conn}
}

const skillColumns = `
	user_id, skill_id, competency_id, current_score, average_score,
	assessment_count, level, consecutive_above_threshold, history,
	created_at, updated_at
`

// Get returns the profile for a user and skill.
func (r *SkillRepository) Get(ctx context.Context, userID, skillID string) (*skill.Profile, error) {
	query := `SELECT ` + skillColumns + ` FROM skill_profiles WHERE user_id = $1 AND skill_id = $2`

	profile, err := r.scanProfile(r.conn.QueryRow(ctx, query, userID, skillID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSkillNotFound
		}
		return nil, fmt.Errorf("failed to get skill profile: %w", err)
	}
	return profile, nil
}

// GetOrCreate returns the profile, inserting an unassessed level-1 profile
// when none exists.
func (r *SkillRepository) GetOrCreate(ctx context.Context, userID, skillID, competencyID string) (*skill.Profile, error) {
	profile, err := r.Get(ctx, userID, skillID)
	if err == nil {
		return profile, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	fresh, err := skill.NewProfile(userID, skillID, competencyID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	insert := `
		INSERT INTO skill_profiles (` + skillColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, skill_id) DO NOTHING
	`

	history, err := marshalHistory(fresh.History)
	if err != nil {
		return nil, err
	}
	_, err = r.conn.Exec(ctx, insert,
		fresh.UserID,
		fresh.SkillID,
		fresh.CompetencyID,
		fresh.CurrentScore,
		fresh.AverageScore,
		fresh.AssessmentCount,
		fresh.Level,
		fresh.ConsecutiveAboveThreshold,
		history,
		fresh.CreatedAt,
		fresh.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create skill profile: %w", err)
	}

	return r.Get(ctx, userID, skillID)
}

// Save inserts or updates a profile.
func (r *SkillRepository) Save(ctx context.Context, profile *skill.Profile) error {
	query := `
		INSERT INTO skill_profiles (` + skillColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, skill_id) DO UPDATE SET
			competency_id = EXCLUDED.competency_id,
			current_score = EXCLUDED.current_score,
			average_score = EXCLUDED.average_score,
			assessment_count = EXCLUDED.assessment_count,
			level = EXCLUDED.level,
			consecutive_above_threshold = EXCLUDED.consecutive_above_threshold,
			history = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at
	`

	history, err := marshalHistory(profile.History)
	if err != nil {
		return err
	}
	_, err = r.conn.Exec(ctx, query,
		profile.UserID,
		profile.SkillID,
		profile.CompetencyID,
		profile.CurrentScore,
		profile.AverageScore,
		profile.AssessmentCount,
		profile.Level,
		profile.ConsecutiveAboveThreshold,
		history,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save skill profile: %w", err)
	}
	return nil
}

// ListByCompetency returns all of the user's profiles under one competency.
func (r *SkillRepository) ListByCompetency(ctx context.Context, userID, competencyID string) ([]*skill.Profile, error) {
	query := `SELECT ` + skillColumns + ` FROM skill_profiles WHERE user_id = $1 AND competency_id = $2 ORDER BY skill_id`
	return r.list(ctx, query, userID, competencyID)
}

// ListByUser returns all of the user's profiles.
func (r *SkillRepository) ListByUser(ctx context.Context, userID string) ([]*skill.Profile, error) {
	query := `SELECT ` + skillColumns + ` FROM skill_profiles WHERE user_id = $1 ORDER BY skill_id`
	return r.list(ctx, query, userID)
}

// IsVideoScored reports whether the video was already folded into the
// user's profiles.
func (r *SkillRepository) IsVideoScored(ctx context.Context, userID, videoID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM scored_videos WHERE user_id = $1 AND video_id = $2)`,
		userID, videoID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check scored video: %w", err)
	}
	return exists, nil
}

// MarkVideoScored records the (user, video) pair.
func (r *SkillRepository) MarkVideoScored(ctx context.Context, userID, videoID string) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO scored_videos (user_id, video_id) VALUES ($1, $2)`,
		userID, videoID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to mark video scored: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

// historyRow is the JSONB shape of one history entry.
type historyRow struct {
	Score int       `json:"score"`
	Date  time.Time `json:"date"`
}

func (r *SkillRepository) list(ctx context.Context, query string, args ...interface{}) ([]*skill.Profile, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list skill profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*skill.Profile
	for rows.Next() {
		profile, err := r.scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (r *SkillRepository) scanProfile(row pgx.Row) (*skill.Profile, error) {
	var (
		profile skill.Profile
		history []byte
	)

	err := row.Scan(
		&profile.UserID,
		&profile.SkillID,
		&profile.CompetencyID,
		&profile.CurrentScore,
		&profile.AverageScore,
		&profile.AssessmentCount,
		&profile.Level,
		&profile.ConsecutiveAboveThreshold,
		&history,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var entries []historyRow
	if err := json.Unmarshal(history, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	for _, e := range entries {
		profile.History = append(profile.History, skill.HistoryEntry{Score: e.Score, Date: e.Date})
	}

	return &profile, nil
}

func marshalHistory(entries []skill.HistoryEntry) ([]byte, error) {
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow{Score: e.Score, Date: e.Date})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return data, nil
}
