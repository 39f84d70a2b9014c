package visibility

import (
	"context"

	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
)

// Resolver answers the two authorization questions every read path asks. It
// holds no state of its own; assignments are re-read on every call so a
// revoked edge takes effect immediately.
type Resolver struct {
	assignments AssignmentStore
}

func NewResolver(assignments AssignmentStore) *Resolver {
	return &Resolver{assignments: assignments}
}

// VisibleSubjects computes the set of subject identities the actor may read.
// Subjects see themselves; supervisors see their assigned subjects (possibly
// none); admins get the unbounded scope. An unrecognized role is treated as
// the least-privileged one: fail closed, never open.
func (r *Resolver) VisibleSubjects(ctx context.Context, actor domain.Actor) (Scope, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return ScopeAll(), nil
	case domain.RoleSupervisor:
		subjects, err := r.assignments.ListSubjects(ctx, actor.ID)
		if err != nil {
			return Scope{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve assignments")
		}
		return ScopeOf(subjects...), nil
	default:
		return ScopeOf(actor.ID), nil
	}
}

// CanAccess reports whether the actor may read data about one subject: self,
// admin, or supervisor with an assignment edge to the target.
func (r *Resolver) CanAccess(ctx context.Context, actor domain.Actor, subjectID domain.PersonID) (bool, error) {
	if actor.ID == subjectID {
		return true, nil
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true, nil
	case domain.RoleSupervisor:
		ok, err := r.assignments.Exists(ctx, Assignment{SupervisorID: actor.ID, SubjectID: subjectID})
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check assignment")
		}
		return ok, nil
	default:
		return false, nil
	}
}
