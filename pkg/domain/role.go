package domain

// Role is the closed set of actor roles recognized by the visibility model.
// It is resolved once where the actor is authenticated and carried as a typed
// value from there on; business logic never re-parses role strings.
type Role string

const (
	// RoleSubject sees only their own data.
	RoleSubject Role = "subject"
	// RoleSupervisor sees the subjects assigned to them.
	RoleSupervisor Role = "supervisor"
	// RoleAdmin sees everything, but only through aggregated views.
	RoleAdmin Role = "admin"
)

// ParseRole maps a raw role string onto the closed role set. Unrecognized or
// empty input resolves to RoleSubject, the least-privileged role, so a
// malformed token can never widen an actor's scope.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSupervisor:
		return RoleSupervisor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleSubject
	}
}

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleSubject, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Actor is an authenticated caller: identity plus resolved role.
type Actor struct {
	ID   PersonID
	Role Role
}
