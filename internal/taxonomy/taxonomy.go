// Package taxonomy is the closed set of event types the ledger accepts.
//
// The set is decided at build time: adding an event type is a deliberate
// schema change with exactly one declaration site, never a runtime operation.
// The ledger validates every emit against this package so no scattered string
// literal can mint a new fact type.
package taxonomy

// EventType names one kind of immutable fact.
type EventType string

const (
	// Opportunity events
	EventOpportunitySaved   EventType = "opportunity_saved"
	EventOpportunityUpdated EventType = "opportunity_updated"

	// Supervision events
	EventSessionScheduled EventType = "session_scheduled"
	EventSessionUpdated   EventType = "session_updated"
	EventFeedbackLogged   EventType = "feedback_logged"

	// Progress events
	EventMilestoneCreated EventType = "milestone_created"
	EventMilestoneUpdated EventType = "milestone_updated"

	// Writing events
	EventWritingCreated   EventType = "writing_version_created"
	EventWritingUpdated   EventType = "writing_updated"
	EventWritingSubmitted EventType = "writing_submitted"

	// Account events
	EventProfileUpdated       EventType = "profile_updated"
	EventSupervisionAssigned  EventType = "supervision_assigned"
	EventSupervisionRevoked   EventType = "supervision_revoked"
	EventDataExportRequested  EventType = "data_export_requested"
	EventNotificationsChanged EventType = "notifications_changed"
)

// Category classifies event types by the program area they describe. This
// enables downstream routing and retention decisions without inspecting
// individual types.
type Category string

const (
	CategoryOpportunity Category = "opportunity"
	CategorySupervision Category = "supervision"
	CategoryProgress    Category = "progress"
	CategoryWriting     Category = "writing"
	CategoryAccount     Category = "account"
)

// eventCategories maps each event type to its category. This map doubles as
// the membership table for the closed set: a type absent here is unsupported.
var eventCategories = map[EventType]Category{
	EventOpportunitySaved:   CategoryOpportunity,
	EventOpportunityUpdated: CategoryOpportunity,

	EventSessionScheduled: CategorySupervision,
	EventSessionUpdated:   CategorySupervision,
	EventFeedbackLogged:   CategorySupervision,

	EventMilestoneCreated: CategoryProgress,
	EventMilestoneUpdated: CategoryProgress,

	EventWritingCreated:   CategoryWriting,
	EventWritingUpdated:   CategoryWriting,
	EventWritingSubmitted: CategoryWriting,

	EventProfileUpdated:       CategoryAccount,
	EventSupervisionAssigned:  CategoryAccount,
	EventSupervisionRevoked:   CategoryAccount,
	EventDataExportRequested:  CategoryAccount,
	EventNotificationsChanged: CategoryAccount,
}

// IsSupported reports whether the event type is a member of the closed set.
func IsSupported(eventType EventType) bool {
	_, ok := eventCategories[eventType]
	return ok
}

// CategoryOf returns the category for a supported event type; the empty
// category for anything outside the set.
func CategoryOf(eventType EventType) Category {
	return eventCategories[eventType]
}

// All returns every supported event type. Order is not defined.
func All() []EventType {
	types := make([]EventType, 0, len(eventCategories))
	for t := range eventCategories {
		types = append(types, t)
	}
	return types
}

// VersionKey is the metadata key carrying the schema version tag.
const VersionKey = "schema_version"

// WithVersion returns a copy of metadata with the schema version tag set,
// inserting or overwriting the key. The caller's map is never mutated; a nil
// map yields a fresh one carrying only the tag.
func WithVersion(metadata map[string]any, version int) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out[VersionKey] = version
	return out
}
