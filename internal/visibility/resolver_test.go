package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phdpeer/pkg/domain"
)

func TestResolver_VisibleSubjects(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	resolver := NewResolver(store)

	subjectID := domain.NewPersonID()
	supervisorID := domain.NewPersonID()
	otherID := domain.NewPersonID()

	t.Run("subject sees exactly themselves", func(t *testing.T) {
		scope, err := resolver.VisibleSubjects(ctx, domain.Actor{ID: subjectID, Role: domain.RoleSubject})
		require.NoError(t, err)
		assert.False(t, scope.Unbounded())
		assert.Equal(t, []domain.PersonID{subjectID}, scope.SubjectIDs())
	})

	t.Run("supervisor without assignments sees nobody", func(t *testing.T) {
		scope, err := resolver.VisibleSubjects(ctx, domain.Actor{ID: supervisorID, Role: domain.RoleSupervisor})
		require.NoError(t, err)
		assert.False(t, scope.Unbounded())
		assert.Empty(t, scope.SubjectIDs())
		assert.False(t, scope.Contains(subjectID))
	})

	t.Run("supervisor sees exactly the assigned set", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectID}))
		require.NoError(t, store.Create(ctx, Assignment{SupervisorID: supervisorID, SubjectID: otherID}))

		scope, err := resolver.VisibleSubjects(ctx, domain.Actor{ID: supervisorID, Role: domain.RoleSupervisor})
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.PersonID{subjectID, otherID}, scope.SubjectIDs())
	})

	t.Run("revocation takes effect on the next call", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Assignment{SupervisorID: supervisorID, SubjectID: otherID}))

		scope, err := resolver.VisibleSubjects(ctx, domain.Actor{ID: supervisorID, Role: domain.RoleSupervisor})
		require.NoError(t, err)
		assert.Equal(t, []domain.PersonID{subjectID}, scope.SubjectIDs())
		assert.False(t, scope.Contains(otherID))
	})

	t.Run("admin scope is unbounded", func(t *testing.T) {
		scope, err := resolver.VisibleSubjects(ctx, domain.Actor{ID: domain.NewPersonID(), Role: domain.RoleAdmin})
		require.NoError(t, err)
		assert.True(t, scope.Unbounded())
		assert.Nil(t, scope.SubjectIDs())
		assert.True(t, scope.Contains(subjectID))
	})

	t.Run("unrecognized role falls back to self only", func(t *testing.T) {
		scope, err := resolver.VisibleSubjects(ctx, domain.Actor{ID: subjectID, Role: domain.Role("auditor")})
		require.NoError(t, err)
		assert.Equal(t, []domain.PersonID{subjectID}, scope.SubjectIDs())
	})
}

func TestResolver_CanAccess(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	resolver := NewResolver(store)

	subjectID := domain.NewPersonID()
	supervisorID := domain.NewPersonID()
	strangerID := domain.NewPersonID()
	require.NoError(t, store.Create(ctx, Assignment{SupervisorID: supervisorID, SubjectID: subjectID}))

	cases := []struct {
		name   string
		actor  domain.Actor
		target domain.PersonID
		want   bool
	}{
		{"self access is always allowed", domain.Actor{ID: subjectID, Role: domain.RoleSubject}, subjectID, true},
		{"subject cannot read another subject", domain.Actor{ID: subjectID, Role: domain.RoleSubject}, strangerID, false},
		{"supervisor can read an assigned subject", domain.Actor{ID: supervisorID, Role: domain.RoleSupervisor}, subjectID, true},
		{"supervisor cannot read an unassigned subject", domain.Actor{ID: supervisorID, Role: domain.RoleSupervisor}, strangerID, false},
		{"admin can read anyone", domain.Actor{ID: domain.NewPersonID(), Role: domain.RoleAdmin}, strangerID, true},
		{"unrecognized role is denied", domain.Actor{ID: domain.NewPersonID(), Role: domain.Role("auditor")}, subjectID, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.CanAccess(ctx, tc.actor, tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
