package progression

import (
	"context"
	"time"
)

// Repository persists ProgressionState aggregates.
//
// Save must enforce optimistic concurrency: the write only succeeds when the
// stored Version still equals expectedVersion, and the implementation
// returns shared.ErrStaleProgression otherwise. Callers re-read and retry.
type Repository interface {
	// Get returns the state for a user, or shared.ErrProgressionNotFound.
	Get(ctx context.Context, userID string) (*ProgressionState, error)

	// GetOrCreate returns the state for a user, creating the zero state
	// if none exists yet.
	GetOrCreate(ctx context.Context, userID, organizationID string) (*ProgressionState, error)

	// Save writes the state if the stored version matches expectedVersion.
	Save(ctx context.Context, state *ProgressionState, expectedVersion int64) error

	// ListUserIDs returns all user ids with progression state, for the
	// nightly maintenance pass.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// EventLedger records processed event identities for idempotency.
//
// MarkProcessed must be called inside the same transaction that mutates
// state so that a redelivered event is detected exactly when its effects
// are already committed.
type EventLedger interface {
	// IsProcessed reports whether the (userID, eventID) pair was already
	// applied.
	IsProcessed(ctx context.Context, userID, eventID string) (bool, error)

	// MarkProcessed records the pair. Returns shared.ErrDuplicateEvent if
	// it was already recorded.
	MarkProcessed(ctx context.Context, userID, eventID string, processedAt time.Time) error
}
