// Package lifecycle is the transition-table engine governing stateful
// entities. The tables are declared once, here; every code path that persists
// a state change must pass through CanTransition (via the Tracker) first.
//
// The engine is stateless and side-effect-free. It never touches storage,
// never logs, and never errors on an illegal transition: it answers with a
// boolean and callers decide whether that is a client error or a no-op.
// Closed world: anything not explicitly allowed is denied.
package lifecycle

// Kind names one stateful entity family.
type Kind string

const (
	KindOpportunityInteraction Kind = "opportunity-interaction"
	KindSupervisionSession     Kind = "supervision-session"
	KindMilestone              Kind = "milestone"
	KindWritingVersion         Kind = "writing-version"
)

// State is one lifecycle state of some entity kind.
type State string

// Opportunity-interaction states.
const (
	StateSaved         State = "saved"
	StateApplied       State = "applied"
	StateRejected      State = "rejected"
	StateAccepted      State = "accepted"
	StateOutcomeLogged State = "outcome_logged"
)

// Supervision-session states.
const (
	StateScheduled       State = "scheduled"
	StateOccurred        State = "occurred"
	StateFeedbackPending State = "feedback_pending"
	StateFeedbackLogged  State = "feedback_logged"
)

// Milestone states.
const (
	StateUpcoming  State = "upcoming"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateDelayed   State = "delayed"
)

// Writing-version states.
const (
	StateDraft     State = "draft"
	StateRevised   State = "revised"
	StateSubmitted State = "submitted"
	StateArchived  State = "archived"
)

type kindSpec struct {
	initial State
	states  []State
	// transitions maps a state to the states directly reachable from it.
	// A state absent here, or mapped to an empty set, is terminal.
	transitions map[State][]State
}

// kinds is the single declaration site for every lifecycle graph.
var kinds = map[Kind]kindSpec{
	KindOpportunityInteraction: {
		initial: StateSaved,
		states:  []State{StateSaved, StateApplied, StateRejected, StateAccepted, StateOutcomeLogged},
		transitions: map[State][]State{
			StateSaved:    {StateApplied},
			StateApplied:  {StateRejected, StateAccepted},
			StateRejected: {StateOutcomeLogged},
			StateAccepted: {StateOutcomeLogged},
		},
	},
	KindSupervisionSession: {
		initial: StateScheduled,
		states:  []State{StateScheduled, StateOccurred, StateFeedbackPending, StateFeedbackLogged},
		transitions: map[State][]State{
			StateScheduled:       {StateOccurred},
			StateOccurred:        {StateFeedbackPending},
			StateFeedbackPending: {StateFeedbackLogged},
		},
	},
	KindMilestone: {
		initial: StateUpcoming,
		states:  []State{StateUpcoming, StateActive, StateCompleted, StateDelayed},
		transitions: map[State][]State{
			StateUpcoming: {StateActive},
			StateActive:   {StateCompleted, StateDelayed},
			StateDelayed:  {StateActive, StateCompleted},
		},
	},
	KindWritingVersion: {
		initial: StateDraft,
		states:  []State{StateDraft, StateRevised, StateSubmitted, StateArchived},
		transitions: map[State][]State{
			StateDraft:     {StateRevised, StateSubmitted},
			StateRevised:   {StateSubmitted, StateArchived},
			StateSubmitted: {StateArchived},
		},
	},
}

// KnownKind reports whether the engine holds a transition table for kind.
func KnownKind(kind Kind) bool {
	_, ok := kinds[kind]
	return ok
}

// Kinds returns every kind with a declared lifecycle. Order is not defined.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for kind := range kinds {
		out = append(out, kind)
	}
	return out
}

// InitialState returns the declared initial state for kind; false for an
// unknown kind.
func InitialState(kind Kind) (State, bool) {
	spec, ok := kinds[kind]
	if !ok {
		return "", false
	}
	return spec.initial, true
}

// States returns the full state set for kind; nil for an unknown kind.
func States(kind Kind) []State {
	spec, ok := kinds[kind]
	if !ok {
		return nil
	}
	return append([]State(nil), spec.states...)
}

// CanTransition reports whether (from -> to) appears in the declared table
// for kind. Unknown kinds and unknown from-states answer false.
func CanTransition(kind Kind, from, to State) bool {
	spec, ok := kinds[kind]
	if !ok {
		return false
	}
	for _, next := range spec.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedNextStates returns the states directly reachable from current.
// Empty for terminal states and unknown kinds, so read-facing callers can
// render legal actions without duplicating the table.
func AllowedNextStates(kind Kind, current State) []State {
	spec, ok := kinds[kind]
	if !ok {
		return []State{}
	}
	return append([]State{}, spec.transitions[current]...)
}
