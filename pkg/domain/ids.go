// Package domain holds the identity types shared across the progress core.
//
// IDs are named UUID types so the compiler keeps subject, event, and
// assignment identifiers from being mixed up. Parsing happens once, at trust
// boundaries; everything past the boundary carries the typed value.
package domain

import (
	"github.com/google/uuid"

	dErrors "phdpeer/pkg/domain-errors"
)

// PersonID identifies a person on the platform, whatever their role. Roles
// are carried separately; the ID space is shared.
type PersonID uuid.UUID

// EventID identifies one immutable ledger fact. Generated at write time.
type EventID uuid.UUID

// ParsePersonID parses and validates a person ID from its string form.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParsePersonID(s string) (PersonID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return PersonID{}, err
	}
	return PersonID(parsed), nil
}

// ParseEventID parses and validates an event ID from its string form.
func ParseEventID(s string) (EventID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID(parsed), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// NewPersonID generates a fresh person ID.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// NewEventID generates a fresh event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

func (p PersonID) String() string { return uuid.UUID(p).String() }
func (p PersonID) IsNil() bool    { return uuid.UUID(p) == uuid.Nil }

func (e EventID) String() string { return uuid.UUID(e).String() }
func (e EventID) IsNil() bool    { return uuid.UUID(e) == uuid.Nil }
