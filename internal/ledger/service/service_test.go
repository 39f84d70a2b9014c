package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phdpeer/internal/ledger"
	"phdpeer/internal/ledger/store/memory"
	"phdpeer/internal/taxonomy"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
	"phdpeer/pkg/requestcontext"
)

func newEmitRequest(subjectID domain.PersonID) EmitRequest {
	return EmitRequest{
		SubjectID:    subjectID,
		ActorRole:    domain.RoleSubject,
		Type:         taxonomy.EventMilestoneUpdated,
		SourceModule: "progress",
		EntityType:   "milestone",
		EntityID:     "m1",
		Metadata:     map[string]any{"delta_days": 3},
	}
}

func TestRecorder_Emit(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := NewRecorder(store)
	subjectID := domain.NewPersonID()

	eventID, err := recorder.Emit(context.Background(), newEmitRequest(subjectID))
	require.NoError(t, err)
	assert.False(t, eventID.IsNil())

	events, err := recorder.List(context.Background(), ledger.Filter{SubjectIDs: []domain.PersonID{subjectID}})
	require.NoError(t, err)
	require.Len(t, events, 1)

	fact := events[0]
	assert.Equal(t, eventID, fact.ID)
	assert.Equal(t, taxonomy.EventMilestoneUpdated, fact.Type)
	assert.Equal(t, "milestone", fact.EntityType)
	assert.Equal(t, "m1", fact.EntityID)
	assert.Equal(t, domain.RoleSubject, fact.ActorRole)
	assert.Equal(t, 1, fact.Metadata[taxonomy.VersionKey])
	assert.Equal(t, 3, fact.Metadata["delta_days"])
}

func TestRecorder_Emit_UnsupportedType(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := NewRecorder(store)
	subjectID := domain.NewPersonID()

	req := newEmitRequest(subjectID)
	req.Type = "thesis_defended"

	_, err := recorder.Emit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnsupportedEvent))

	// No row may have been written.
	events, err := recorder.List(context.Background(), ledger.Filter{SubjectIDs: []domain.PersonID{subjectID}})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecorder_Emit_MetadataDefensiveCopy(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := NewRecorder(store)
	subjectID := domain.NewPersonID()

	req := newEmitRequest(subjectID)
	_, err := recorder.Emit(context.Background(), req)
	require.NoError(t, err)

	// The caller keeps its map; the stored fact must not see this.
	req.Metadata["delta_days"] = 99
	_, tagged := req.Metadata[taxonomy.VersionKey]
	assert.False(t, tagged, "caller's map must not gain the version tag")

	events, err := recorder.List(context.Background(), ledger.Filter{SubjectIDs: []domain.PersonID{subjectID}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].Metadata["delta_days"])
}

func TestRecorder_Emit_Timestamps(t *testing.T) {
	t.Run("defaults to request-scoped now", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		recorder := NewRecorder(store)
		subjectID := domain.NewPersonID()

		fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), fixed)

		_, err := recorder.Emit(ctx, newEmitRequest(subjectID))
		require.NoError(t, err)

		events, err := recorder.List(ctx, ledger.Filter{SubjectIDs: []domain.PersonID{subjectID}})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, fixed, events[0].Timestamp)
	})

	t.Run("preserves an explicit event time", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		recorder := NewRecorder(store)
		subjectID := domain.NewPersonID()

		eventTime := time.Date(2025, 11, 20, 16, 0, 0, 0, time.UTC)
		req := newEmitRequest(subjectID)
		req.Timestamp = eventTime

		_, err := recorder.Emit(context.Background(), req)
		require.NoError(t, err)

		events, err := recorder.List(context.Background(), ledger.Filter{SubjectIDs: []domain.PersonID{subjectID}})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, eventTime, events[0].Timestamp)
	})
}

func TestRecorder_Emit_NoDeduplication(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := NewRecorder(store)
	subjectID := domain.NewPersonID()

	first, err := recorder.Emit(context.Background(), newEmitRequest(subjectID))
	require.NoError(t, err)
	second, err := recorder.Emit(context.Background(), newEmitRequest(subjectID))
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each emit mints a distinct fact")

	events, err := recorder.List(context.Background(), ledger.Filter{SubjectIDs: []domain.PersonID{subjectID}})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRecorder_EmitOrIgnore(t *testing.T) {
	t.Run("suppresses taxonomy failures", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		recorder := NewRecorder(store)
		subjectID := domain.NewPersonID()

		req := newEmitRequest(subjectID)
		req.Type = "not_a_real_event"

		_, ok, err := recorder.EmitOrIgnore(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, ok)

		events, err := recorder.List(context.Background(), ledger.Filter{SubjectIDs: []domain.PersonID{subjectID}})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("propagates storage faults", func(t *testing.T) {
		recorder := NewRecorder(&failingStore{})

		_, ok, err := recorder.EmitOrIgnore(context.Background(), newEmitRequest(domain.NewPersonID()))
		require.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("propagates malformed requests", func(t *testing.T) {
		recorder := NewRecorder(memory.NewInMemoryStore())

		req := newEmitRequest(domain.PersonID{})

		_, ok, err := recorder.EmitOrIgnore(context.Background(), req)
		require.Error(t, err, "a missing subject is a caller bug, not an unknown event type")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.False(t, ok)
	})

	t.Run("emits normally for valid requests", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		recorder := NewRecorder(store)
		subjectID := domain.NewPersonID()

		eventID, ok, err := recorder.EmitOrIgnore(context.Background(), newEmitRequest(subjectID))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, eventID.IsNil())
	})
}

func TestRecorder_List_ClampsLimit(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := NewRecorder(store, WithPageSizes(3, 2))
	subjectID := domain.NewPersonID()

	for i := 0; i < 5; i++ {
		req := newEmitRequest(subjectID)
		req.Timestamp = time.Date(2026, 3, 1, 9, i, 0, 0, time.UTC)
		_, err := recorder.Emit(context.Background(), req)
		require.NoError(t, err)
	}

	t.Run("limit above maximum is clamped", func(t *testing.T) {
		events, err := recorder.List(context.Background(), ledger.Filter{Limit: 100})
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("zero limit gets the default page size", func(t *testing.T) {
		events, err := recorder.List(context.Background(), ledger.Filter{})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})
}

type failingStore struct{}

func (f *failingStore) Append(context.Context, ledger.Event) error {
	return errors.New("connection reset")
}

func (f *failingStore) List(context.Context, ledger.Filter) ([]ledger.Event, error) {
	return nil, errors.New("connection reset")
}

func (f *failingStore) CountByType(context.Context, ledger.Filter) (map[taxonomy.EventType]int64, error) {
	return nil, errors.New("connection reset")
}
