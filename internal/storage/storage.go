package storage

import (
	"context"
	"time"

	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/world"
)

// Storage defines session persistence plus the read-only world
// template catalog.
type Storage interface {
	// Ping tests the backing store connection.
	Ping(ctx context.Context) error

	// Close closes the backing store connection.
	Close() error

	// SaveGameState saves a session snapshot keyed by its id.
	SaveGameState(ctx context.Context, id string, gs *state.GameState) error

	// LoadGameState retrieves a session by id. Returns nil when the
	// session does not exist.
	LoadGameState(ctx context.Context, id string) (*state.GameState, error)

	// DeleteGameState removes a session by id.
	DeleteGameState(ctx context.Context, id string) error

	// ListWorldTemplates returns every available world template.
	ListWorldTemplates(ctx context.Context) ([]*world.Template, error)

	// GetWorldTemplate loads one template by file name. Returns nil
	// when the template does not exist.
	GetWorldTemplate(ctx context.Context, name string) (*world.Template, error)

	// AcquireTurnLock claims the per-session turn lock. Returns false
	// without error when another turn is already in flight.
	AcquireTurnLock(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// ReleaseTurnLock releases the per-session turn lock.
	ReleaseTurnLock(ctx context.Context, id string) error
}
