// Package query is the read-facing façade over the ledger, the lifecycle
// engine, and the visibility resolver. Every read passes through the actor's
// visible-subject scope before touching storage; the façade itself holds no
// data.
package query

import (
	"context"
	"log/slog"
	"time"

	"phdpeer/internal/ledger"
	"phdpeer/internal/lifecycle"
	querymetrics "phdpeer/internal/query/metrics"
	"phdpeer/internal/taxonomy"
	"phdpeer/internal/visibility"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
)

// Lister is the slice of the ledger recorder the façade reads through.
type Lister interface {
	List(ctx context.Context, filter ledger.Filter) ([]ledger.Event, error)
	CountByType(ctx context.Context, filter ledger.Filter) (map[taxonomy.EventType]int64, error)
}

// ScopeResolver computes the subject set an actor may read.
type ScopeResolver interface {
	VisibleSubjects(ctx context.Context, actor domain.Actor) (visibility.Scope, error)
}

// Filter narrows an event listing. SubjectID is optional; when set, results
// are restricted to that one subject (still subject to the actor's scope).
type Filter struct {
	SubjectID    domain.PersonID
	Type         taxonomy.EventType
	SourceModule string
	From         time.Time
	To           time.Time
	Offset       int
	Limit        int
}

// Summary is the aggregate view offered to administrators. It carries counts
// only, never subject identities.
type Summary struct {
	Counts map[taxonomy.EventType]int64
	Total  int64
	From   time.Time
	To     time.Time
}

// Service composes the three read paths behind one scoped surface.
type Service struct {
	ledger  Lister
	scopes  ScopeResolver
	logger  *slog.Logger
	metrics *querymetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *querymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(lister Lister, scopes ScopeResolver, opts ...Option) *Service {
	s := &Service{
		ledger: lister,
		scopes: scopes,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListEvents returns the facts the actor may see, newest first. A filter on a
// subject outside the actor's scope yields an empty page, indistinguishable
// from a subject with no events. Administrators are refused per-person
// listings entirely; the aggregate Summary is their read path.
func (s *Service) ListEvents(ctx context.Context, actor domain.Actor, filter Filter) ([]ledger.Event, error) {
	if actor.Role == domain.RoleAdmin {
		s.incrementDenied("list_events")
		return nil, dErrors.New(dErrors.CodeForbidden, "administrators read aggregates, not individual timelines")
	}

	scope, err := s.scopes.VisibleSubjects(ctx, actor)
	if err != nil {
		return nil, err
	}
	if scope.Unbounded() {
		// Only admins get an unbounded scope, and they were refused above.
		s.incrementDenied("list_events")
		return nil, dErrors.New(dErrors.CodeForbidden, "unbounded listings are not served")
	}

	var subjects []domain.PersonID
	if !filter.SubjectID.IsNil() {
		if !scope.Contains(filter.SubjectID) {
			return []ledger.Event{}, nil
		}
		subjects = []domain.PersonID{filter.SubjectID}
	} else {
		subjects = scope.SubjectIDs()
		if len(subjects) == 0 {
			return []ledger.Event{}, nil
		}
	}

	events, err := s.ledger.List(ctx, ledger.Filter{
		SubjectIDs:   subjects,
		Type:         filter.Type,
		SourceModule: filter.SourceModule,
		From:         filter.From,
		To:           filter.To,
		Offset:       filter.Offset,
		Limit:        filter.Limit,
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRequests("list_events")
	}
	return events, nil
}

// Summarize returns event counts by type over an optional time window.
// Admin-only; the response carries no subject identities.
func (s *Service) Summarize(ctx context.Context, actor domain.Actor, from, to time.Time) (Summary, error) {
	if actor.Role != domain.RoleAdmin {
		s.incrementDenied("summary")
		return Summary{}, dErrors.New(dErrors.CodeForbidden, "summary is an administrative view")
	}

	counts, err := s.ledger.CountByType(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return Summary{}, err
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	if s.metrics != nil {
		s.metrics.IncrementRequests("summary")
	}
	return Summary{Counts: counts, Total: total, From: from, To: to}, nil
}

// NextStates exposes the engine's reachable-state view for a kind and current
// state. Unknown kinds and states are rejected rather than answered with an
// empty set, so callers can distinguish "terminal" from "nonsense".
func (s *Service) NextStates(kind lifecycle.Kind, current lifecycle.State) ([]lifecycle.State, error) {
	if !lifecycle.KnownKind(kind) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown entity kind")
	}
	known := false
	for _, state := range lifecycle.States(kind) {
		if state == current {
			known = true
			break
		}
	}
	if !known {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown state for kind")
	}

	if s.metrics != nil {
		s.metrics.IncrementRequests("next_states")
	}
	return lifecycle.AllowedNextStates(kind, current), nil
}

func (s *Service) incrementDenied(operation string) {
	if s.metrics != nil {
		s.metrics.IncrementDenied(operation)
	}
}
