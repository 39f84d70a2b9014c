// Package ledger is the append-only store of immutable progress facts.
//
// An Event is written exactly once and never changes afterwards. The package
// exposes no update, delete, or upsert operation on any type, so immutability
// is enforced structurally rather than by convention. Deduplication is deliberately
// absent: emitting twice yields two facts, and emitters that need idempotency
// manage their own key (see internal/idempotency).
package ledger

import (
	"context"
	"time"

	"phdpeer/internal/taxonomy"
	"phdpeer/pkg/domain"
)

// Event is one immutable, timestamped fact about a subject's progress.
// ActorRole is snapshotted at write time; it is never re-resolved later.
type Event struct {
	ID           domain.EventID
	SubjectID    domain.PersonID
	ActorRole    domain.Role
	Type         taxonomy.EventType
	EntityType   string
	EntityID     string
	Metadata     map[string]any
	Timestamp    time.Time
	SourceModule string
}

// Filter narrows a ledger query. Zero values mean "no constraint".
// From is inclusive, To exclusive.
type Filter struct {
	SubjectIDs   []domain.PersonID
	Type         taxonomy.EventType
	SourceModule string
	From         time.Time
	To           time.Time
	Offset       int
	Limit        int
}

// Store persists ledger events. Append-only by contract: implementations
// expose no way to modify or remove a row.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
	// CountByType aggregates matching events per event type. Offset and
	// Limit on the filter are ignored.
	CountByType(ctx context.Context, filter Filter) (map[taxonomy.EventType]int64, error)
}
