package handler

import (
	"time"

	"phdpeer/internal/ledger"
	"phdpeer/internal/lifecycle"
	"phdpeer/internal/lifecycle/tracker"
	"phdpeer/internal/query"
)

// EventResponse is one ledger fact as returned over HTTP.
type EventResponse struct {
	ID           string         `json:"id"`
	SubjectID    string         `json:"subject_id"`
	ActorRole    string         `json:"actor_role"`
	Type         string         `json:"type"`
	EntityType   string         `json:"entity_type,omitempty"`
	EntityID     string         `json:"entity_id,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	Timestamp    time.Time      `json:"timestamp"`
	SourceModule string         `json:"source_module"`
}

// EventsResponse is the HTTP response for GET /events.
type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

// FromEvents converts ledger facts to the HTTP representation.
func FromEvents(events []ledger.Event) EventsResponse {
	out := EventsResponse{Events: make([]EventResponse, 0, len(events))}
	for _, event := range events {
		out.Events = append(out.Events, EventResponse{
			ID:           event.ID.String(),
			SubjectID:    event.SubjectID.String(),
			ActorRole:    string(event.ActorRole),
			Type:         string(event.Type),
			EntityType:   event.EntityType,
			EntityID:     event.EntityID,
			Metadata:     event.Metadata,
			Timestamp:    event.Timestamp,
			SourceModule: event.SourceModule,
		})
	}
	return out
}

// SummaryResponse is the HTTP response for GET /events/summary.
type SummaryResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
	From   *time.Time       `json:"from,omitempty"`
	To     *time.Time       `json:"to,omitempty"`
}

// FromSummary converts the aggregate view to the HTTP representation.
func FromSummary(summary query.Summary) SummaryResponse {
	out := SummaryResponse{
		Counts: make(map[string]int64, len(summary.Counts)),
		Total:  summary.Total,
	}
	for eventType, count := range summary.Counts {
		out.Counts[string(eventType)] = count
	}
	if !summary.From.IsZero() {
		out.From = &summary.From
	}
	if !summary.To.IsZero() {
		out.To = &summary.To
	}
	return out
}

// NextStatesResponse is the HTTP response for GET /lifecycle/{kind}/next-states.
type NextStatesResponse struct {
	Kind  string   `json:"kind"`
	State string   `json:"state"`
	Next  []string `json:"next"`
}

// FromNextStates converts the reachable-state set to the HTTP representation.
func FromNextStates(kind lifecycle.Kind, current lifecycle.State, next []lifecycle.State) NextStatesResponse {
	out := NextStatesResponse{
		Kind:  string(kind),
		State: string(current),
		Next:  make([]string, 0, len(next)),
	}
	for _, state := range next {
		out.Next = append(out.Next, string(state))
	}
	return out
}

// EntityResponse is the HTTP representation of a lifecycle entity.
type EntityResponse struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	SubjectID      string    `json:"subject_id"`
	State          string    `json:"state"`
	StateEnteredAt time.Time `json:"state_entered_at"`
}

// FromEntity converts a lifecycle entity to the HTTP representation.
func FromEntity(entity tracker.Entity) EntityResponse {
	return EntityResponse{
		ID:             entity.ID,
		Kind:           string(entity.Kind),
		SubjectID:      entity.SubjectID.String(),
		State:          string(entity.State),
		StateEnteredAt: entity.StateEnteredAt,
	}
}
