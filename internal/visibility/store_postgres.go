package visibility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"phdpeer/pkg/domain"
	"phdpeer/pkg/platform/sentinel"
)

// PostgresStore persists assignment edges in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE assignments (
//	    supervisor_id UUID NOT NULL,
//	    subject_id    UUID NOT NULL,
//	    PRIMARY KEY (supervisor_id, subject_id)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, assignment Assignment) error {
	query := `INSERT INTO assignments (supervisor_id, subject_id) VALUES ($1, $2)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(assignment.SupervisorID),
		uuid.UUID(assignment.SubjectID),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, assignment Assignment) error {
	query := `DELETE FROM assignments WHERE supervisor_id = $1 AND subject_id = $2`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(assignment.SupervisorID),
		uuid.UUID(assignment.SubjectID),
	)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assignment delete result: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSubjects(ctx context.Context, supervisorID domain.PersonID) ([]domain.PersonID, error) {
	query := `SELECT subject_id FROM assignments WHERE supervisor_id = $1`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(supervisorID))
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var subjects []domain.PersonID
	for rows.Next() {
		var subjectID uuid.UUID
		if err := rows.Scan(&subjectID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		subjects = append(subjects, domain.PersonID(subjectID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return subjects, nil
}

func (s *PostgresStore) Exists(ctx context.Context, assignment Assignment) (bool, error) {
	query := `SELECT 1 FROM assignments WHERE supervisor_id = $1 AND subject_id = $2`
	var one int
	err := s.db.QueryRowContext(ctx, query,
		uuid.UUID(assignment.SupervisorID),
		uuid.UUID(assignment.SubjectID),
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}
