package tracker

import (
	"context"
	"time"

	"phdpeer/internal/lifecycle"
	"phdpeer/pkg/domain"
)

// Entity is one stateful domain object under lifecycle control. The entity's
// attributes live with the feature module that owns it; the tracker persists
// only the lifecycle columns.
type Entity struct {
	ID             string
	Kind           lifecycle.Kind
	SubjectID      domain.PersonID
	State          lifecycle.State
	StateEnteredAt time.Time
}

// Store persists lifecycle state. There is deliberately no unconditional
// state setter: the only mutation is a compare-and-swap guarded by the
// previously observed state, so two concurrent callers cannot both believe a
// transition from the same state succeeded.
type Store interface {
	// Create inserts an entity at its initial state. Returns
	// sentinel.ErrConflict if (kind, id) already exists.
	Create(ctx context.Context, entity Entity) error

	// Get returns the entity or sentinel.ErrNotFound.
	Get(ctx context.Context, kind lifecycle.Kind, id string) (Entity, error)

	// CompareAndSwapState moves (kind, id) from `from` to `to` atomically.
	// Returns sentinel.ErrNotFound if the entity does not exist and
	// sentinel.ErrConflict if its current state is no longer `from`.
	CompareAndSwapState(ctx context.Context, kind lifecycle.Kind, id string, from, to lifecycle.State, at time.Time) error
}
