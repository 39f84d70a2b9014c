package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"phdpeer/internal/lifecycle"
	"phdpeer/pkg/domain"
	"phdpeer/pkg/platform/sentinel"
)

// PostgresStore persists lifecycle rows in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE lifecycle_entities (
//	    kind             TEXT NOT NULL,
//	    id               TEXT NOT NULL,
//	    subject_id       UUID NOT NULL,
//	    state            TEXT NOT NULL,
//	    state_entered_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (kind, id)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, entity Entity) error {
	query := `
		INSERT INTO lifecycle_entities (kind, id, subject_id, state, state_entered_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(entity.Kind),
		entity.ID,
		uuid.UUID(entity.SubjectID),
		string(entity.State),
		entity.StateEnteredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert lifecycle entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, kind lifecycle.Kind, id string) (Entity, error) {
	query := `
		SELECT subject_id, state, state_entered_at
		FROM lifecycle_entities
		WHERE kind = $1 AND id = $2
	`
	var (
		subjectID uuid.UUID
		state     string
		enteredAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query, string(kind), id).Scan(&subjectID, &state, &enteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entity{}, sentinel.ErrNotFound
		}
		return Entity{}, fmt.Errorf("query lifecycle entity: %w", err)
	}
	return Entity{
		ID:             id,
		Kind:           kind,
		SubjectID:      domain.PersonID(subjectID),
		State:          lifecycle.State(state),
		StateEnteredAt: enteredAt,
	}, nil
}

// CompareAndSwapState is a conditional update guarded by the previously
// observed state. Zero rows affected means either the row is gone or another
// caller already moved it; the two are told apart with a follow-up read.
func (s *PostgresStore) CompareAndSwapState(ctx context.Context, kind lifecycle.Kind, id string, from, to lifecycle.State, at time.Time) error {
	query := `
		UPDATE lifecycle_entities
		SET state = $1, state_entered_at = $2
		WHERE kind = $3 AND id = $4 AND state = $5
	`
	result, err := s.db.ExecContext(ctx, query, string(to), at, string(kind), id, string(from))
	if err != nil {
		return fmt.Errorf("update lifecycle entity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("lifecycle update result: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, kind, id); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}
