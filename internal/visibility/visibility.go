// Package visibility computes which subject identities an actor may read.
//
// The assignment relation (who supervises whom) is the only input besides the
// actor's role. Assignments are maintained by the administrative surface and
// only read here; they carry no business meaning beyond access scoping.
package visibility

import (
	"context"

	"phdpeer/pkg/domain"
)

// Assignment is one supervisor-subject edge, unique per pair.
type Assignment struct {
	SupervisorID domain.PersonID
	SubjectID    domain.PersonID
}

// Scope is the set of subject identities an actor may read. An unbounded
// scope means "no subject filter"; callers performing per-person reads under
// an unbounded scope must aggregate or anonymize before returning data.
type Scope struct {
	unbounded bool
	subjects  []domain.PersonID
}

// ScopeAll is the admin sentinel: no subject-identity filter.
func ScopeAll() Scope { return Scope{unbounded: true} }

// ScopeOf bounds the scope to an explicit subject set.
func ScopeOf(subjects ...domain.PersonID) Scope {
	return Scope{subjects: subjects}
}

// Unbounded reports whether the scope carries no subject filter.
func (s Scope) Unbounded() bool { return s.unbounded }

// SubjectIDs returns the explicit subject set; nil for an unbounded scope.
func (s Scope) SubjectIDs() []domain.PersonID {
	if s.unbounded {
		return nil
	}
	return append([]domain.PersonID(nil), s.subjects...)
}

// Contains reports whether the scope covers a subject.
func (s Scope) Contains(subjectID domain.PersonID) bool {
	if s.unbounded {
		return true
	}
	for _, id := range s.subjects {
		if id == subjectID {
			return true
		}
	}
	return false
}

// AssignmentStore reads and maintains the supervisor-subject relation.
type AssignmentStore interface {
	// Create adds an edge. Returns sentinel.ErrConflict if the pair exists.
	Create(ctx context.Context, assignment Assignment) error
	// Delete removes an edge. Returns sentinel.ErrNotFound if absent.
	Delete(ctx context.Context, assignment Assignment) error
	// ListSubjects returns the subjects assigned to a supervisor.
	ListSubjects(ctx context.Context, supervisorID domain.PersonID) ([]domain.PersonID, error)
	// Exists reports whether the edge is present.
	Exists(ctx context.Context, assignment Assignment) (bool, error)
}
