package streak

import (
	"context"
)

// Repository persists streak records. Implementations must enforce at most
// one active record per user; a partial unique index backs this in postgres.
type Repository interface {
	// GetActive returns the user's active streak record, or
	// shared.ErrStreakNotFound when none exists.
	GetActive(ctx context.Context, userID string) (*Record, error)

	// LongestLength returns the longest archived streak length for the
	// user, 0 when the user has no archived streaks.
	LongestLength(ctx context.Context, userID string) (int, error)

	// Save inserts or updates a record.
	Save(ctx context.Context, record *Record) error

	// ListByUser returns all records for a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Record, error)

	// ListActiveUserIDs returns the ids of users with an active streak,
	// for the nightly maintenance pass.
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}
