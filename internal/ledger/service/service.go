// Package service implements the ledger recorder: the single write path for
// progress facts and the read surface the query façade composes.
package service

import (
	"context"
	"log/slog"
	"time"

	"phdpeer/internal/ledger"
	ledgermetrics "phdpeer/internal/ledger/metrics"
	"phdpeer/internal/taxonomy"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
	"phdpeer/pkg/requestcontext"
)

// StreamPublisher fans a durable fact out to downstream consumers.
// Publishing is best-effort; it must never fail an emit.
type StreamPublisher interface {
	Publish(ctx context.Context, event ledger.Event)
}

// EmitRequest carries everything needed to append one fact.
type EmitRequest struct {
	SubjectID    domain.PersonID
	ActorRole    domain.Role
	Type         taxonomy.EventType
	SourceModule string
	EntityType   string
	EntityID     string
	Metadata     map[string]any
	// MetadataVersion tags the metadata schema; zero means version 1.
	MetadataVersion int
	// Timestamp is the event time. Zero means "now" (request-scoped).
	// The ledger never infers it from insertion order.
	Timestamp time.Time
}

// Recorder validates, enriches, and appends ledger facts. It has no update or
// delete operation; once Emit returns, the fact is permanent.
type Recorder struct {
	store   ledger.Store
	logger  *slog.Logger
	metrics *ledgermetrics.Metrics
	stream  StreamPublisher

	maxPageSize     int
	defaultPageSize int
}

// Option configures a Recorder.
type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func WithStream(stream StreamPublisher) Option {
	return func(r *Recorder) { r.stream = stream }
}

// WithPageSizes overrides the pagination bounds (max, default).
func WithPageSizes(maxSize, defaultSize int) Option {
	return func(r *Recorder) {
		if maxSize > 0 {
			r.maxPageSize = maxSize
		}
		if defaultSize > 0 {
			r.defaultPageSize = defaultSize
		}
	}
}

func NewRecorder(store ledger.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:           store,
		logger:          slog.Default(),
		maxPageSize:     1000,
		defaultPageSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Emit appends exactly one fact. The event type must be a member of the
// taxonomy; otherwise nothing is written and an unsupported_event_type error
// is returned. Metadata is defensively copied and version-tagged, so the
// stored map is never the caller's.
func (r *Recorder) Emit(ctx context.Context, req EmitRequest) (domain.EventID, error) {
	if !taxonomy.IsSupported(req.Type) {
		return domain.EventID{}, dErrors.New(dErrors.CodeUnsupportedEvent, "event type is not in the taxonomy")
	}
	if req.SubjectID.IsNil() {
		return domain.EventID{}, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if req.SourceModule == "" {
		return domain.EventID{}, dErrors.New(dErrors.CodeInvalidInput, "source module is required")
	}

	version := req.MetadataVersion
	if version == 0 {
		version = 1
	}
	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = requestcontext.Now(ctx)
	}

	event := ledger.Event{
		ID:           domain.NewEventID(),
		SubjectID:    req.SubjectID,
		ActorRole:    req.ActorRole,
		Type:         req.Type,
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		Metadata:     taxonomy.WithVersion(req.Metadata, version),
		Timestamp:    timestamp,
		SourceModule: req.SourceModule,
	}

	if err := r.store.Append(ctx, event); err != nil {
		return domain.EventID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append event")
	}

	if r.metrics != nil {
		r.metrics.IncrementEmitted(string(event.Type))
	}
	if r.stream != nil {
		r.stream.Publish(ctx, event)
	}
	return event.ID, nil
}

// EmitOrIgnore is the opt-in variant for callers that must never let audit
// logging abort a business transaction. Only taxonomy failures become a no-op
// signal (ok=false); every suppression is counted and logged so the data loss
// stays observable. Malformed requests and storage faults still propagate:
// those are caller bugs and infrastructure problems, not unknown event types.
func (r *Recorder) EmitOrIgnore(ctx context.Context, req EmitRequest) (domain.EventID, bool, error) {
	eventID, err := r.Emit(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnsupportedEvent) {
			if r.metrics != nil {
				r.metrics.IncrementSuppressed()
			}
			r.logger.WarnContext(ctx, "suppressed unsupported ledger event",
				"event_type", req.Type,
				"source_module", req.SourceModule,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return domain.EventID{}, false, nil
		}
		return domain.EventID{}, false, err
	}
	return eventID, true, nil
}

// List returns facts matching the filter, ordered by timestamp descending.
// The limit is clamped to the configured maximum to prevent unbounded scans;
// a non-positive limit gets the default page size.
func (r *Recorder) List(ctx context.Context, filter ledger.Filter) ([]ledger.Event, error) {
	start := time.Now()

	if filter.Limit <= 0 {
		filter.Limit = r.defaultPageSize
	}
	if filter.Limit > r.maxPageSize {
		filter.Limit = r.maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := r.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query events")
	}

	if r.metrics != nil {
		r.metrics.ObserveQuery(start)
	}
	return events, nil
}

// CountByType returns the number of matching facts per event type. Pagination
// fields on the filter are ignored.
func (r *Recorder) CountByType(ctx context.Context, filter ledger.Filter) (map[taxonomy.EventType]int64, error) {
	start := time.Now()

	counts, err := r.store.CountByType(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count events")
	}

	if r.metrics != nil {
		r.metrics.ObserveQuery(start)
	}
	return counts, nil
}
