package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"phdpeer/internal/ledger"
	"phdpeer/internal/lifecycle"
	"phdpeer/internal/lifecycle/tracker"
	"phdpeer/internal/query"
	"phdpeer/internal/taxonomy"
	"phdpeer/internal/visibility"
	"phdpeer/pkg/domain"
	dErrors "phdpeer/pkg/domain-errors"
	"phdpeer/pkg/platform/httputil"
	"phdpeer/pkg/requestcontext"
)

// QueryService defines the read operations behind the HTTP surface.
type QueryService interface {
	ListEvents(ctx context.Context, actor domain.Actor, filter query.Filter) ([]ledger.Event, error)
	Summarize(ctx context.Context, actor domain.Actor, from, to time.Time) (query.Summary, error)
	NextStates(kind lifecycle.Kind, current lifecycle.State) ([]lifecycle.State, error)
}

// LifecycleService defines the entity write operations.
type LifecycleService interface {
	Register(ctx context.Context, actor domain.Actor, kind lifecycle.Kind, entityID string, subjectID domain.PersonID) (tracker.Entity, error)
	Transition(ctx context.Context, actor domain.Actor, kind lifecycle.Kind, entityID string, to lifecycle.State) (tracker.Entity, error)
	Get(ctx context.Context, kind lifecycle.Kind, entityID string) (tracker.Entity, error)
}

// AccessChecker answers per-subject access questions.
type AccessChecker interface {
	CanAccess(ctx context.Context, actor domain.Actor, subjectID domain.PersonID) (bool, error)
}

// AssignmentService maintains supervisor-subject assignments.
type AssignmentService interface {
	Assign(ctx context.Context, actor domain.Actor, assignment visibility.Assignment) error
	Revoke(ctx context.Context, actor domain.Actor, assignment visibility.Assignment) error
}

// KeyReserver claims idempotency keys on behalf of write requests. A key is
// released again when the guarded write fails, so a corrected retry can reuse
// it.
type KeyReserver interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Handler wires the read façade and the lifecycle write path to HTTP.
type Handler struct {
	queries     QueryService
	lifecycle   LifecycleService
	access      AccessChecker
	assignments AssignmentService
	reserver    KeyReserver
	logger      *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithReserver enables Idempotency-Key support on lifecycle writes.
func WithReserver(reserver KeyReserver) Option {
	return func(h *Handler) { h.reserver = reserver }
}

// New constructs a handler with its dependencies.
func New(queries QueryService, lifecycleService LifecycleService, access AccessChecker, assignments AssignmentService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		queries:     queries,
		lifecycle:   lifecycleService,
		access:      access,
		assignments: assignments,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleListEvents)
	r.Get("/events/summary", h.HandleSummary)
	r.Get("/lifecycle/{kind}/next-states", h.HandleNextStates)
	r.Post("/lifecycle/{kind}", h.HandleRegisterEntity)
	r.Post("/lifecycle/{kind}/{entityID}/transition", h.HandleTransition)
}

// RegisterAdmin mounts the assignment endpoints; callers guard them with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/assignments", h.HandleCreateAssignment)
	r.Delete("/admin/assignments/{supervisorID}/{subjectID}", h.HandleDeleteAssignment)
}

// HandleListEvents handles GET /events requests.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.queries.ListEvents(ctx, actor, filter)
	if err != nil {
		h.logError(ctx, "event listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

// HandleSummary handles GET /events/summary requests.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	from, to, err := timeWindowFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.queries.Summarize(ctx, actor, from, to)
	if err != nil {
		h.logError(ctx, "summary failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary))
}

// HandleNextStates handles GET /lifecycle/{kind}/next-states requests.
func (h *Handler) HandleNextStates(w http.ResponseWriter, r *http.Request) {
	kind := lifecycle.Kind(chi.URLParam(r, "kind"))
	current := lifecycle.State(r.URL.Query().Get("state"))

	next, err := h.queries.NextStates(kind, current)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromNextStates(kind, current, next))
}

// HandleRegisterEntity handles POST /lifecycle/{kind} requests.
func (h *Handler) HandleRegisterEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)
	kind := lifecycle.Kind(chi.URLParam(r, "kind"))

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	key, ok := h.reserveKey(w, r)
	if !ok {
		return
	}

	subjectID := req.ParsedSubjectID()
	if subjectID.IsNil() {
		subjectID = actor.ID
	}
	if subjectID != actor.ID {
		if !h.allowSubject(w, ctx, actor, subjectID) {
			h.releaseKey(ctx, key)
			return
		}
	}

	entity, err := h.lifecycle.Register(ctx, actor, kind, req.EntityID, subjectID)
	if err != nil {
		h.releaseKey(ctx, key)
		h.logError(ctx, "entity registration failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "entity registered",
		"request_id", requestID,
		"kind", kind,
		"entity_id", entity.ID,
		"state", entity.State,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromEntity(entity))
}

// HandleTransition handles POST /lifecycle/{kind}/{entityID}/transition requests.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)
	kind := lifecycle.Kind(chi.URLParam(r, "kind"))
	entityID := chi.URLParam(r, "entityID")

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	key, ok := h.reserveKey(w, r)
	if !ok {
		return
	}

	current, err := h.lifecycle.Get(ctx, kind, entityID)
	if err != nil {
		h.releaseKey(ctx, key)
		httputil.WriteError(w, err)
		return
	}
	if current.SubjectID != actor.ID {
		if !h.allowSubject(w, ctx, actor, current.SubjectID) {
			h.releaseKey(ctx, key)
			return
		}
	}

	entity, err := h.lifecycle.Transition(ctx, actor, kind, entityID, req.TargetState())
	if err != nil {
		h.releaseKey(ctx, key)
		h.logError(ctx, "transition failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "entity transitioned",
		"request_id", requestID,
		"kind", kind,
		"entity_id", entityID,
		"state", entity.State,
	)
	httputil.WriteJSON(w, http.StatusOK, FromEntity(entity))
}

// HandleCreateAssignment handles POST /admin/assignments requests.
func (h *Handler) HandleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AssignmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	edge := visibility.Assignment{
		SupervisorID: req.ParsedSupervisorID(),
		SubjectID:    req.ParsedSubjectID(),
	}
	if err := h.assignments.Assign(ctx, adminActor(), edge); err != nil {
		h.logError(ctx, "assignment creation failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "assignment created",
		"request_id", requestID,
		"supervisor_id", edge.SupervisorID,
		"subject_id", edge.SubjectID,
	)
	w.WriteHeader(http.StatusCreated)
}

// HandleDeleteAssignment handles DELETE /admin/assignments/{supervisorID}/{subjectID}.
func (h *Handler) HandleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	supervisorID, err := domain.ParsePersonID(chi.URLParam(r, "supervisorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID, err := domain.ParsePersonID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	edge := visibility.Assignment{SupervisorID: supervisorID, SubjectID: subjectID}
	if err := h.assignments.Revoke(ctx, adminActor(), edge); err != nil {
		h.logError(ctx, "assignment revocation failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "assignment revoked",
		"request_id", requestID,
		"supervisor_id", edge.SupervisorID,
		"subject_id", edge.SubjectID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// reserveKey honors the Idempotency-Key header when a reserver is wired. A
// replayed key is refused as a conflict; a request without the header is
// processed normally. The returned key must be handed to releaseKey on every
// failure path past the reservation, otherwise a failed write would burn the
// key and refuse the client's corrected retry.
func (h *Handler) reserveKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.reserver == nil {
		return "", true
	}
	won, err := h.reserver.Reserve(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	if !won {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "request with this idempotency key was already processed"))
		return "", false
	}
	return key, true
}

// releaseKey frees a reservation after the guarded write failed.
func (h *Handler) releaseKey(ctx context.Context, key string) {
	if key == "" || h.reserver == nil {
		return
	}
	if err := h.reserver.Release(ctx, key); err != nil {
		h.logger.WarnContext(ctx, "idempotency key release failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// allowSubject checks per-subject access and writes a not-found on denial so
// a refused caller learns nothing about the entity's existence.
func (h *Handler) allowSubject(w http.ResponseWriter, ctx context.Context, actor domain.Actor, subjectID domain.PersonID) bool {
	allowed, err := h.access.CanAccess(ctx, actor, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return false
	}
	if !allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "entity not found"))
		return false
	}
	return true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

// adminActor is the acting identity on token-guarded administrative routes,
// which carry no person identity of their own.
func adminActor() domain.Actor {
	return domain.Actor{Role: domain.RoleAdmin}
}

func filterFromQuery(r *http.Request) (query.Filter, error) {
	values := r.URL.Query()
	var filter query.Filter

	if raw := values.Get("subject_id"); raw != "" {
		subjectID, err := domain.ParsePersonID(raw)
		if err != nil {
			return query.Filter{}, err
		}
		filter.SubjectID = subjectID
	}
	filter.Type = taxonomy.EventType(values.Get("type"))
	filter.SourceModule = values.Get("source_module")

	from, to, err := timeWindowFromQuery(r)
	if err != nil {
		return query.Filter{}, err
	}
	filter.From, filter.To = from, to

	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return query.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func timeWindowFromQuery(r *http.Request) (from, to time.Time, err error) {
	values := r.URL.Query()
	if raw := values.Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "from must be an RFC 3339 timestamp")
		}
	}
	if raw := values.Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "to must be an RFC 3339 timestamp")
		}
	}
	return from, to, nil
}
