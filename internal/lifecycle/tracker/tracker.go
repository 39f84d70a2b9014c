// Package tracker is the single write path for persisted entity state. Every
// state change passes through the engine's transition check and a conditional
// update guarded by the previously observed state; no bare setter exists, so
// illegal lifecycle jumps are structurally impossible rather than merely
// discouraged.
package tracker

import (
	"context"
	"errors"
	"log/slog"

	"phdpeer/internal/ledger/service"
	"phdpeer/internal/lifecycle"
	lifecyclemetrics "phdpeer/internal/lifecycle/metrics"
	"phdpeer/internal/taxonomy"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
	"phdpeer/pkg/platform/sentinel"
	"phdpeer/pkg/requestcontext"
)

// Emitter is the slice of the ledger recorder the tracker needs.
type Emitter interface {
	Emit(ctx context.Context, req service.EmitRequest) (domain.EventID, error)
}

// kindEvents maps each entity kind to the facts its lifecycle produces and
// the module name those facts are attributed to.
var kindEvents = map[lifecycle.Kind]struct {
	created      taxonomy.EventType
	transitioned taxonomy.EventType
	sourceModule string
}{
	lifecycle.KindOpportunityInteraction: {taxonomy.EventOpportunitySaved, taxonomy.EventOpportunityUpdated, "opportunities"},
	lifecycle.KindSupervisionSession:     {taxonomy.EventSessionScheduled, taxonomy.EventSessionUpdated, "supervision"},
	lifecycle.KindMilestone:              {taxonomy.EventMilestoneCreated, taxonomy.EventMilestoneUpdated, "progress"},
	lifecycle.KindWritingVersion:         {taxonomy.EventWritingCreated, taxonomy.EventWritingUpdated, "writing"},
}

// Tracker applies lifecycle transitions and records each accepted one as a
// ledger fact.
type Tracker struct {
	store   Store
	emitter Emitter
	logger  *slog.Logger
	metrics *lifecyclemetrics.Metrics
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func WithMetrics(m *lifecyclemetrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func New(store Store, emitter Emitter, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		emitter: emitter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register creates an entity at its kind's initial state and records the
// creation fact.
func (t *Tracker) Register(ctx context.Context, actor domain.Actor, kind lifecycle.Kind, entityID string, subjectID domain.PersonID) (Entity, error) {
	events, ok := kindEvents[kind]
	if !ok {
		return Entity{}, dErrors.New(dErrors.CodeBadRequest, "unknown entity kind")
	}
	if entityID == "" {
		return Entity{}, dErrors.New(dErrors.CodeInvalidInput, "entity id is required")
	}

	initial, _ := lifecycle.InitialState(kind)
	entity := Entity{
		ID:             entityID,
		Kind:           kind,
		SubjectID:      subjectID,
		State:          initial,
		StateEnteredAt: requestcontext.Now(ctx),
	}

	if err := t.store.Create(ctx, entity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Entity{}, dErrors.New(dErrors.CodeConflict, "entity already exists")
		}
		return Entity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create entity")
	}

	_, err := t.emitter.Emit(ctx, service.EmitRequest{
		SubjectID:    subjectID,
		ActorRole:    actor.Role,
		Type:         events.created,
		SourceModule: events.sourceModule,
		EntityType:   string(kind),
		EntityID:     entityID,
		Metadata:     map[string]any{"state": string(initial)},
	})
	if err != nil {
		return Entity{}, err
	}
	return entity, nil
}

// Transition moves an entity to a new state. The engine is consulted first;
// an illegal move is rejected before anything is written. The write itself is
// a compare-and-swap on the observed state, so a lost race surfaces as a
// conflict instead of a silent double-apply.
func (t *Tracker) Transition(ctx context.Context, actor domain.Actor, kind lifecycle.Kind, entityID string, to lifecycle.State) (Entity, error) {
	events, ok := kindEvents[kind]
	if !ok {
		return Entity{}, dErrors.New(dErrors.CodeBadRequest, "unknown entity kind")
	}

	entity, err := t.store.Get(ctx, kind, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Entity{}, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return Entity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}

	from := entity.State
	if !lifecycle.CanTransition(kind, from, to) {
		t.incrementRejected(kind, "illegal")
		return Entity{}, dErrors.New(dErrors.CodeInvalidState, "transition is not allowed")
	}

	now := requestcontext.Now(ctx)
	if err := t.store.CompareAndSwapState(ctx, kind, entityID, from, to, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			t.incrementRejected(kind, "conflict")
			return Entity{}, dErrors.New(dErrors.CodeConflict, "entity state changed concurrently")
		case errors.Is(err, sentinel.ErrNotFound):
			return Entity{}, dErrors.New(dErrors.CodeNotFound, "entity not found")
		default:
			return Entity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist transition")
		}
	}

	entity.State = to
	entity.StateEnteredAt = now

	if t.metrics != nil {
		t.metrics.IncrementAccepted(string(kind))
	}

	_, err = t.emitter.Emit(ctx, service.EmitRequest{
		SubjectID:    entity.SubjectID,
		ActorRole:    actor.Role,
		Type:         events.transitioned,
		SourceModule: events.sourceModule,
		EntityType:   string(kind),
		EntityID:     entityID,
		Metadata: map[string]any{
			"from_state": string(from),
			"to_state":   string(to),
		},
	})
	if err != nil {
		return Entity{}, err
	}
	return entity, nil
}

// Get returns the current lifecycle row for an entity.
func (t *Tracker) Get(ctx context.Context, kind lifecycle.Kind, entityID string) (Entity, error) {
	entity, err := t.store.Get(ctx, kind, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Entity{}, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return Entity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}
	return entity, nil
}

func (t *Tracker) incrementRejected(kind lifecycle.Kind, reason string) {
	if t.metrics != nil {
		t.metrics.IncrementRejected(string(kind), reason)
	}
}
