// Package store persists hand state snapshots and hand histories so a
// crashed coordinator can resume games and finished hands stay
// auditable. Two implementations exist: an in-memory store for tests
// and single-process runs, and a Postgres store for durable deployments.
package store

import (
	"context"
	"errors"

	"github.com/agenttable/agenttable/internal/game"
)

// ErrNotFound is returned when a game or hand has never been saved.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface the session coordinator writes
// through. Implementations must be safe for concurrent use.
type Store interface {
	// SaveState upserts the latest snapshot for a game.
	SaveState(ctx context.Context, state *game.HandState) error
	// LoadState returns the latest saved snapshot for a game.
	LoadState(ctx context.Context, gameID string) (*game.HandState, error)
	// SaveHistory upserts the full history record for one hand.
	SaveHistory(ctx context.Context, history *game.HandHistory) error
	// LoadHistories returns every hand history for a game in hand order.
	LoadHistories(ctx context.Context, gameID string) ([]*game.HandHistory, error)
	// AppendAction records one accepted action for a hand.
	AppendAction(ctx context.Context, gameID string, handNumber int, record game.ActionRecord) error
	// Close releases any underlying resources.
	Close(ctx context.Context) error
}
