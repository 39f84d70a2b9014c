package handler

import (
	"strings"

	"phdpeer/internal/lifecycle"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /lifecycle/{kind}.
type RegisterRequest struct {
	EntityID  string `json:"entity_id"`
	SubjectID string `json:"subject_id"`

	parsedSubjectID domain.PersonID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	r.EntityID = strings.TrimSpace(r.EntityID)
	if r.EntityID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "entity_id is required")
	}
	if len(r.EntityID) > 128 {
		return dErrors.New(dErrors.CodeInvalidInput, "entity_id must be at most 128 characters")
	}

	r.SubjectID = strings.TrimSpace(r.SubjectID)
	if r.SubjectID != "" {
		subjectID, err := domain.ParsePersonID(r.SubjectID)
		if err != nil {
			return err
		}
		r.parsedSubjectID = subjectID
	}
	return nil
}

// ParsedSubjectID returns the validated subject ID; nil when absent.
func (r *RegisterRequest) ParsedSubjectID() domain.PersonID {
	return r.parsedSubjectID
}

// TransitionRequest is the HTTP request body for
// POST /lifecycle/{kind}/{entityID}/transition.
type TransitionRequest struct {
	To string `json:"to"`
}

// Validate validates the request.
func (r *TransitionRequest) Validate() error {
	r.To = strings.TrimSpace(r.To)
	if r.To == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "to is required")
	}
	return nil
}

// TargetState returns the requested target state.
func (r *TransitionRequest) TargetState() lifecycle.State {
	return lifecycle.State(r.To)
}

// AssignmentRequest is the HTTP request body for POST /admin/assignments.
type AssignmentRequest struct {
	SupervisorID string `json:"supervisor_id"`
	SubjectID    string `json:"subject_id"`

	parsedSupervisorID domain.PersonID
	parsedSubjectID    domain.PersonID
}

// Validate validates and parses both identifiers.
func (r *AssignmentRequest) Validate() error {
	supervisorID, err := domain.ParsePersonID(strings.TrimSpace(r.SupervisorID))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "supervisor_id must be a valid person id")
	}
	subjectID, err := domain.ParsePersonID(strings.TrimSpace(r.SubjectID))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "subject_id must be a valid person id")
	}
	r.parsedSupervisorID = supervisorID
	r.parsedSubjectID = subjectID
	return nil
}

// ParsedSupervisorID returns the validated supervisor ID.
func (r *AssignmentRequest) ParsedSupervisorID() domain.PersonID {
	return r.parsedSupervisorID
}

// ParsedSubjectID returns the validated subject ID.
func (r *AssignmentRequest) ParsedSubjectID() domain.PersonID {
	return r.parsedSubjectID
}
