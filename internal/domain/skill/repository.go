package skill

import (
	"context"
)

// Repository persists skill profiles.
type Repository interface {
	// Get returns the profile for a user and skill, or
	// shared.ErrSkillNotFound.
	Get(ctx context.Context, userID, skillID string) (*Profile, error)

	// GetOrCreate returns the profile, creating an unassessed level-1
	// profile when none exists.
	GetOrCreate(ctx context.Context, userID, skillID, competencyID string) (*Profile, error)

	// Save inserts or updates a profile.
	Save(ctx context.Context, profile *Profile) error

	// ListByCompetency returns all of the user's profiles under one
	// competency.
	ListByCompetency(ctx context.Context, userID, competencyID string) ([]*Profile, error)

	// ListByUser returns all of the user's profiles.
	ListByUser(ctx context.Context, userID string) ([]*Profile, error)

	// IsVideoScored reports whether the video was already folded into the
	// user's profiles.
	IsVideoScored(ctx context.Context, userID, videoID string) (bool, error)

	// MarkVideoScored records the (user, video) pair. Returns
	// shared.ErrDuplicateEvent when already recorded.
	MarkVideoScored(ctx context.Context, userID, videoID string) error
}
