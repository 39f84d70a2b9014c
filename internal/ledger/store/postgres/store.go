package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"phdpeer/internal/ledger"
	"phdpeer/internal/taxonomy"
	"phdpeer/pkg/domain"
)

// Store persists ledger events in PostgreSQL. The table has no UPDATE or
// DELETE path in this codebase; rows are retained indefinitely.
//
// Expected schema:
//
//	CREATE TABLE ledger_events (
//	    id            UUID PRIMARY KEY,
//	    subject_id    UUID NOT NULL,
//	    actor_role    TEXT NOT NULL,
//	    event_type    TEXT NOT NULL,
//	    entity_type   TEXT NOT NULL DEFAULT '',
//	    entity_id     TEXT NOT NULL DEFAULT '',
//	    metadata      JSONB NOT NULL DEFAULT '{}',
//	    timestamp     TIMESTAMPTZ NOT NULL,
//	    source_module TEXT NOT NULL
//	);
//	CREATE INDEX ledger_events_subject_ts ON ledger_events (subject_id, timestamp DESC);
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts exactly one row. A failure before the insert acknowledges
// leaves no partial row; the statement is a single independent write.
func (s *Store) Append(ctx context.Context, event ledger.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_events (
			id, subject_id, actor_role, event_type,
			entity_type, entity_id, metadata, timestamp, source_module
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.SubjectID),
		string(event.ActorRole),
		string(event.Type),
		event.EntityType,
		event.EntityID,
		metadata,
		event.Timestamp,
		event.SourceModule,
	)
	if err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// List returns matching rows ordered by timestamp descending.
func (s *Store) List(ctx context.Context, filter ledger.Filter) ([]ledger.Event, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	conditions = filterConditions(filter, arg)

	query := `
		SELECT id, subject_id, actor_role, event_type,
		       entity_type, entity_id, metadata, timestamp, source_module
		FROM ledger_events
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByType aggregates matching rows per event type.
func (s *Store) CountByType(ctx context.Context, filter ledger.Filter) (map[taxonomy.EventType]int64, error) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	conditions := filterConditions(filter, arg)

	query := `SELECT event_type, COUNT(*) FROM ledger_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY event_type"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count ledger events: %w", err)
	}
	defer rows.Close()

	counts := make(map[taxonomy.EventType]int64)
	for rows.Next() {
		var (
			eventType string
			count     int64
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[taxonomy.EventType(eventType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return counts, nil
}

func filterConditions(filter ledger.Filter, arg func(any) string) []string {
	var conditions []string
	if len(filter.SubjectIDs) > 0 {
		ids := make([]uuid.UUID, len(filter.SubjectIDs))
		for i, subjectID := range filter.SubjectIDs {
			ids[i] = uuid.UUID(subjectID)
		}
		conditions = append(conditions, "subject_id = ANY("+arg(pq.Array(ids))+")")
	}
	if filter.Type != "" {
		conditions = append(conditions, "event_type = "+arg(string(filter.Type)))
	}
	if filter.SourceModule != "" {
		conditions = append(conditions, "source_module = "+arg(filter.SourceModule))
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "timestamp >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "timestamp < "+arg(filter.To))
	}
	return conditions
}

func scanEvents(rows *sql.Rows) ([]ledger.Event, error) {
	var events []ledger.Event

	for rows.Next() {
		var (
			event     ledger.Event
			eventID   uuid.UUID
			subjectID uuid.UUID
			actorRole string
			eventType string
			metadata  []byte
		)

		err := rows.Scan(
			&eventID,
			&subjectID,
			&actorRole,
			&eventType,
			&event.EntityType,
			&event.EntityID,
			&metadata,
			&event.Timestamp,
			&event.SourceModule,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}

		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal event metadata: %w", err)
		}
		event.ID = domain.EventID(eventID)
		event.SubjectID = domain.PersonID(subjectID)
		event.ActorRole = domain.Role(actorRole)
		event.Type = taxonomy.EventType(eventType)

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger events: %w", err)
	}
	return events, nil
}
