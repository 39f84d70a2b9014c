package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerservice "phdpeer/internal/ledger/service"
	ledgermemory "phdpeer/internal/ledger/store/memory"
	"phdpeer/internal/lifecycle"
	"phdpeer/internal/taxonomy"
	"phdpeer/internal/visibility"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
)

type fixture struct {
	service     *Service
	recorder    *ledgerservice.Recorder
	assignments *visibility.InMemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	recorder := ledgerservice.NewRecorder(ledgermemory.NewInMemoryStore())
	assignments := visibility.NewInMemoryStore()
	resolver := visibility.NewResolver(assignments)
	return fixture{
		service:     NewService(recorder, resolver),
		recorder:    recorder,
		assignments: assignments,
	}
}

func emitFact(t *testing.T, f fixture, subjectID domain.PersonID, eventType taxonomy.EventType, entityID string) {
	t.Helper()
	_, err := f.recorder.Emit(context.Background(), ledgerservice.EmitRequest{
		SubjectID:    subjectID,
		ActorRole:    domain.RoleSubject,
		Type:         eventType,
		SourceModule: "progress",
		EntityType:   "milestone",
		EntityID:     entityID,
	})
	require.NoError(t, err)
}

func TestService_ListEvents_ScopeEnforcement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u1 := domain.NewPersonID()
	u2 := domain.NewPersonID()
	supervisorB := domain.NewPersonID()
	emitFact(t, f, u1, taxonomy.EventMilestoneUpdated, "m1")

	t.Run("subject sees their own fact", func(t *testing.T) {
		events, err := f.service.ListEvents(ctx, domain.Actor{ID: u1, Role: domain.RoleSubject}, Filter{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "m1", events[0].EntityID)
	})

	t.Run("another subject sees an empty page", func(t *testing.T) {
		events, err := f.service.ListEvents(ctx, domain.Actor{ID: u2, Role: domain.RoleSubject}, Filter{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("a subject filtering for someone else gets an empty page, not an error", func(t *testing.T) {
		events, err := f.service.ListEvents(ctx, domain.Actor{ID: u2, Role: domain.RoleSubject}, Filter{SubjectID: u1})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("unassigned supervisor sees nothing", func(t *testing.T) {
		events, err := f.service.ListEvents(ctx, domain.Actor{ID: supervisorB, Role: domain.RoleSupervisor}, Filter{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("assignment makes the fact visible to the supervisor", func(t *testing.T) {
		require.NoError(t, f.assignments.Create(ctx, visibility.Assignment{SupervisorID: supervisorB, SubjectID: u1}))

		events, err := f.service.ListEvents(ctx, domain.Actor{ID: supervisorB, Role: domain.RoleSupervisor}, Filter{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, taxonomy.EventMilestoneUpdated, events[0].Type)
		assert.Equal(t, "m1", events[0].EntityID)
	})

	t.Run("revocation hides the fact again", func(t *testing.T) {
		require.NoError(t, f.assignments.Delete(ctx, visibility.Assignment{SupervisorID: supervisorB, SubjectID: u1}))

		events, err := f.service.ListEvents(ctx, domain.Actor{ID: supervisorB, Role: domain.RoleSupervisor}, Filter{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("admin is refused per-person listings", func(t *testing.T) {
		_, err := f.service.ListEvents(ctx, domain.Actor{ID: domain.NewPersonID(), Role: domain.RoleAdmin}, Filter{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("unknown role is scoped to self", func(t *testing.T) {
		events, err := f.service.ListEvents(ctx, domain.Actor{ID: u1, Role: domain.Role("auditor")}, Filter{})
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})
}

func TestService_ListEvents_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := domain.NewPersonID()
	actor := domain.Actor{ID: u1, Role: domain.RoleSubject}

	emitFact(t, f, u1, taxonomy.EventMilestoneUpdated, "m1")
	emitFact(t, f, u1, taxonomy.EventMilestoneCreated, "m2")

	events, err := f.service.ListEvents(ctx, actor, Filter{Type: taxonomy.EventMilestoneCreated})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "m2", events[0].EntityID)
}

func TestService_Summarize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u1 := domain.NewPersonID()
	u2 := domain.NewPersonID()
	emitFact(t, f, u1, taxonomy.EventMilestoneUpdated, "m1")
	emitFact(t, f, u1, taxonomy.EventMilestoneUpdated, "m2")
	emitFact(t, f, u2, taxonomy.EventWritingSubmitted, "w1")

	t.Run("admin gets counts without identities", func(t *testing.T) {
		summary, err := f.service.Summarize(ctx, domain.Actor{ID: domain.NewPersonID(), Role: domain.RoleAdmin}, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.Total)
		assert.Equal(t, int64(2), summary.Counts[taxonomy.EventMilestoneUpdated])
		assert.Equal(t, int64(1), summary.Counts[taxonomy.EventWritingSubmitted])
	})

	t.Run("non-admin roles are refused", func(t *testing.T) {
		for _, role := range []domain.Role{domain.RoleSubject, domain.RoleSupervisor, domain.Role("auditor")} {
			_, err := f.service.Summarize(ctx, domain.Actor{ID: u1, Role: role}, time.Time{}, time.Time{})
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		}
	})
}

func TestService_NextStates(t *testing.T) {
	f := newFixture(t)

	t.Run("returns the reachable set", func(t *testing.T) {
		states, err := f.service.NextStates(lifecycle.KindWritingVersion, lifecycle.StateDraft)
		require.NoError(t, err)
		assert.ElementsMatch(t, []lifecycle.State{lifecycle.StateRevised, lifecycle.StateSubmitted}, states)
	})

	t.Run("terminal states return an empty set", func(t *testing.T) {
		states, err := f.service.NextStates(lifecycle.KindWritingVersion, lifecycle.StateArchived)
		require.NoError(t, err)
		assert.Empty(t, states)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := f.service.NextStates("grant-application", lifecycle.StateDraft)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("unknown state is rejected", func(t *testing.T) {
		_, err := f.service.NextStates(lifecycle.KindWritingVersion, lifecycle.StateUpcoming)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
