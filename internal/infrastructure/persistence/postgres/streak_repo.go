package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/streak"
	"github.com/skillstream/progression-engine/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL. The partial
// unique index on (user_id) WHERE status = 'active' enforces the single
// active streak invariant at the storage layer.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

const streakColumns = `
	id, user_id, start_date, end_date, length, status,
	active_dates, completed_campaign_ids, longest_in_history,
	created_at, updated_at
`

// GetActive returns the user's active streak record.
func (r *StreakRepository) GetActive(ctx context.Context, userID string) (*streak.Record, error) {
	query := `SELECT ` + streakColumns + ` FROM streak_records WHERE user_id = $1 AND status = 'active'`

	record, err := r.scanRecord(r.conn.QueryRow(ctx, query, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to get active streak: %w", err)
	}
	return record, nil
}

// LongestLength returns the longest archived streak length for the user.
func (r *StreakRepository) LongestLength(ctx context.Context, userID string) (int, error) {
	var longest int
	err := r.conn.QueryRow(ctx,
		`SELECT COALESCE(MAX(length), 0) FROM streak_records WHERE user_id = $1 AND status = 'broken'`,
		userID,
	).Scan(&longest)
	if err != nil {
		return 0, fmt.Errorf("failed to get longest streak: %w", err)
	}
	return longest, nil
}

// Save inserts or updates a record.
func (r *StreakRepository) Save(ctx context.Context, record *streak.Record) error {
	query := `
		INSERT INTO streak_records (` + streakColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			end_date = EXCLUDED.end_date,
			length = EXCLUDED.length,
			status = EXCLUDED.status,
			active_dates = EXCLUDED.active_dates,
			completed_campaign_ids = EXCLUDED.completed_campaign_ids,
			longest_in_history = EXCLUDED.longest_in_history,
			updated_at = EXCLUDED.updated_at
	`

	activeDates, err := json.Marshal(dateKeys(record.ActiveDates))
	if err != nil {
		return fmt.Errorf("failed to marshal active dates: %w", err)
	}
	campaignIDs := record.CompletedCampaignIDs
	if campaignIDs == nil {
		campaignIDs = []string{}
	}
	campaigns, err := json.Marshal(campaignIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign ids: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.StartDate,
		record.EndDate,
		record.Length,
		string(record.Status),
		activeDates,
		campaigns,
		record.LongestInHistory,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStreakAlreadyActive
		}
		return fmt.Errorf("failed to save streak record: %w", err)
	}
	return nil
}

// ListByUser returns all records for a user, newest first.
func (r *StreakRepository) ListByUser(ctx context.Context, userID string) ([]*streak.Record, error) {
	query := `SELECT ` + streakColumns + ` FROM streak_records WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list streak records: %w", err)
	}
	defer rows.Close()

	var records []*streak.Record
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListActiveUserIDs returns the ids of users with an active streak.
func (r *StreakRepository) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT user_id FROM streak_records WHERE status = 'active' ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active streak users: %w", err)
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

func (r *StreakRepository) scanRecord(row pgx.Row) (*streak.Record, error) {
	var (
		record      streak.Record
		status      string
		activeDates []byte
		campaigns   []byte
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.StartDate,
		&record.EndDate,
		&record.Length,
		&status,
		&activeDates,
		&campaigns,
		&record.LongestInHistory,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Status = streak.Status(status)

	var keys []string
	if err := json.Unmarshal(activeDates, &keys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active dates: %w", err)
	}
	record.ActiveDates, err = parseDateKeys(keys)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(campaigns, &record.CompletedCampaignIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign ids: %w", err)
	}

	// DATE columns come back in UTC already, pin them to the platform zone.
	record.StartDate = timeutil.StartOfDay(record.StartDate)
	if record.EndDate != nil {
		end := timeutil.StartOfDay(*record.EndDate)
		record.EndDate = &end
	}

	return &record, nil
}

func dateKeys(dates []time.Time) []string {
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, timeutil.DateKey(d))
	}
	return keys
}

func parseDateKeys(keys []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(keys))
	for _, k := range keys {
		d, err := timeutil.ParseDateKey(k)
		if err != nil {
			return nil, fmt.Errorf("failed to parse active date %q: %w", k, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}
