package visibility

import (
	"context"
	"errors"
	"log/slog"

	"phdpeer/internal/ledger/service"
	"phdpeer/internal/taxonomy"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
	"phdpeer/pkg/platform/sentinel"
)

// Emitter is the slice of the ledger recorder the service needs.
type Emitter interface {
	Emit(ctx context.Context, req service.EmitRequest) (domain.EventID, error)
}

// Service maintains supervisor-subject assignments. Each change is recorded
// as a ledger fact attributed to the subject so the subject's timeline shows
// who gained or lost visibility over them.
type Service struct {
	assignments AssignmentStore
	emitter     Emitter
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(assignments AssignmentStore, emitter Emitter, opts ...ServiceOption) *Service {
	s := &Service{
		assignments: assignments,
		emitter:     emitter,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assign adds a supervisor-subject edge and records the assignment fact.
func (s *Service) Assign(ctx context.Context, actor domain.Actor, assignment Assignment) error {
	if assignment.SupervisorID.IsNil() || assignment.SubjectID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "supervisor and subject ids are required")
	}
	if assignment.SupervisorID == assignment.SubjectID {
		return dErrors.New(dErrors.CodeInvalidInput, "a person cannot supervise themselves")
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "assignment already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assignment")
	}

	_, err := s.emitter.Emit(ctx, service.EmitRequest{
		SubjectID:    assignment.SubjectID,
		ActorRole:    actor.Role,
		Type:         taxonomy.EventSupervisionAssigned,
		SourceModule: "supervision",
		EntityType:   "assignment",
		EntityID:     assignment.SupervisorID.String(),
		Metadata:     map[string]any{"supervisor_id": assignment.SupervisorID.String()},
	})
	return err
}

// Revoke removes a supervisor-subject edge and records the revocation fact.
func (s *Service) Revoke(ctx context.Context, actor domain.Actor, assignment Assignment) error {
	if err := s.assignments.Delete(ctx, assignment); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "assignment not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete assignment")
	}

	_, err := s.emitter.Emit(ctx, service.EmitRequest{
		SubjectID:    assignment.SubjectID,
		ActorRole:    actor.Role,
		Type:         taxonomy.EventSupervisionRevoked,
		SourceModule: "supervision",
		EntityType:   "assignment",
		EntityID:     assignment.SupervisorID.String(),
		Metadata:     map[string]any{"supervisor_id": assignment.SupervisorID.String()},
	})
	return err
}
