//go:build integration

package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phdpeer/pkg/domain"
	"phdpeer/pkg/platform/sentinel"
	"phdpeer/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()
	require.NoError(t, pg.Truncate(ctx))

	supervisorID := domain.NewPersonID()
	subjectA := domain.NewPersonID()
	subjectB := domain.NewPersonID()

	require.NoError(t, store.Create(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectA}))
	require.NoError(t, store.Create(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectB}))

	t.Run("duplicate pair is a conflict", func(t *testing.T) {
		err := store.Create(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectA})
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("lists the assigned subjects", func(t *testing.T) {
		subjects, err := store.ListSubjects(ctx, supervisorID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.PersonID{subjectA, subjectB}, subjects)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := store.Exists(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectA})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, Assignment{SupervisorID: subjectA, SubjectID: supervisorID})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete removes the edge", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectB}))

		subjects, err := store.ListSubjects(ctx, supervisorID)
		require.NoError(t, err)
		assert.Equal(t, []domain.PersonID{subjectA}, subjects)
	})

	t.Run("deleting a missing edge is not found", func(t *testing.T) {
		err := store.Delete(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectB})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
