package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"phdpeer/internal/ledger"
	"phdpeer/internal/taxonomy"
	"phdpeer/pkg/domain"
)

type LedgerStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	base  time.Time
}

func (s *LedgerStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) newEvent(subjectID domain.PersonID, eventType taxonomy.EventType, at time.Time) ledger.Event {
	return ledger.Event{
		ID:           domain.NewEventID(),
		SubjectID:    subjectID,
		ActorRole:    domain.RoleSubject,
		Type:         eventType,
		Metadata:     map[string]any{taxonomy.VersionKey: 1},
		Timestamp:    at,
		SourceModule: "progress",
	}
}

func (s *LedgerStoreSuite) TestAppendAndFilter() {
	alice := domain.NewPersonID()
	bob := domain.NewPersonID()

	s.Require().NoError(s.store.Append(s.ctx, s.newEvent(alice, taxonomy.EventMilestoneUpdated, s.base)))
	s.Require().NoError(s.store.Append(s.ctx, s.newEvent(alice, taxonomy.EventFeedbackLogged, s.base.Add(time.Hour))))
	s.Require().NoError(s.store.Append(s.ctx, s.newEvent(bob, taxonomy.EventMilestoneUpdated, s.base.Add(2*time.Hour))))

	s.Run("filters by subject", func() {
		events, err := s.store.List(s.ctx, ledger.Filter{SubjectIDs: []domain.PersonID{alice}})
		s.Require().NoError(err)
		s.Len(events, 2)
	})

	s.Run("filters by event type", func() {
		events, err := s.store.List(s.ctx, ledger.Filter{Type: taxonomy.EventMilestoneUpdated})
		s.Require().NoError(err)
		s.Len(events, 2)
	})

	s.Run("filters by subject set", func() {
		events, err := s.store.List(s.ctx, ledger.Filter{SubjectIDs: []domain.PersonID{alice, bob}})
		s.Require().NoError(err)
		s.Len(events, 3)
	})

	s.Run("orders by timestamp descending", func() {
		events, err := s.store.List(s.ctx, ledger.Filter{})
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.True(events[0].Timestamp.After(events[1].Timestamp))
		s.True(events[1].Timestamp.After(events[2].Timestamp))
	})
}

func (s *LedgerStoreSuite) TestTimeRange() {
	alice := domain.NewPersonID()
	for i := 0; i < 4; i++ {
		event := s.newEvent(alice, taxonomy.EventMilestoneUpdated, s.base.Add(time.Duration(i)*time.Hour))
		s.Require().NoError(s.store.Append(s.ctx, event))
	}

	s.Run("from is inclusive, to is exclusive", func() {
		events, err := s.store.List(s.ctx, ledger.Filter{
			From: s.base.Add(time.Hour),
			To:   s.base.Add(3 * time.Hour),
		})
		s.Require().NoError(err)
		s.Len(events, 2)
	})
}

func (s *LedgerStoreSuite) TestPagination() {
	alice := domain.NewPersonID()
	for i := 0; i < 5; i++ {
		event := s.newEvent(alice, taxonomy.EventMilestoneUpdated, s.base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.Append(s.ctx, event))
	}

	s.Run("applies offset and limit after ordering", func() {
		events, err := s.store.List(s.ctx, ledger.Filter{Offset: 1, Limit: 2})
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(s.base.Add(3*time.Minute), events[0].Timestamp)
		s.Equal(s.base.Add(2*time.Minute), events[1].Timestamp)
	})

	s.Run("offset past the end yields empty page", func() {
		events, err := s.store.List(s.ctx, ledger.Filter{Offset: 10, Limit: 2})
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *LedgerStoreSuite) TestMetadataIsolation() {
	alice := domain.NewPersonID()
	event := s.newEvent(alice, taxonomy.EventMilestoneUpdated, s.base)
	event.Metadata = map[string]any{"delta_days": 3}
	s.Require().NoError(s.store.Append(s.ctx, event))

	// Mutating the caller's map after append must not touch the stored fact.
	event.Metadata["delta_days"] = 99

	events, err := s.store.List(s.ctx, ledger.Filter{SubjectIDs: []domain.PersonID{alice}})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(3, events[0].Metadata["delta_days"])
}
