package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sunset/internal/audit"
	"sunset/internal/cache"
	"sunset/internal/domain"
	"sunset/internal/eol"
	dErrors "sunset/pkg/domain-errors"
	"sunset/pkg/platform/httputil"
	"sunset/pkg/requestcontext"
)

// defaultMaxBatchSize caps batch requests unless configuration overrides it.
const defaultMaxBatchSize = 50

// Audit trail paging bounds.
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// Service defines the interface for resolution operations.
type Service interface {
	Resolve(ctx context.Context, name, version string) (*domain.ResolvedEOL, error)
	ResolveBatch(ctx context.Context, queries []eol.Request) ([]*domain.ResolvedEOL, error)
	Purge(ctx context.Context, name, version string) error
	PurgeAll(ctx context.Context) error
	CacheStats(ctx context.Context) cache.Stats
}

// Handler wires resolution endpoints to the resolution service.
type Handler struct {
	service      Service
	logger       *slog.Logger
	maxBatchSize int
	audit        *audit.Recorder
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxBatchSize overrides the batch request size cap.
func WithMaxBatchSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBatchSize = n
		}
	}
}

// WithAudit records admin actions on the given recorder. Without it the
// trail endpoint serves an empty list and nothing is recorded.
func WithAudit(rec *audit.Recorder) Option {
	return func(h *Handler) {
		h.audit = rec
	}
}

// New constructs a resolution handler with its dependencies.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:      service,
		logger:       logger,
		maxBatchSize: defaultMaxBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts the public resolution endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/eol/resolve", h.HandleResolve)
	r.Post("/v1/eol/resolve-batch", h.HandleResolveBatch)
}

// RegisterAdmin mounts the cache administration endpoints. The router is
// expected to wrap these in the admin auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/v1/admin/cache/stats", h.HandleCacheStats)
	r.Post("/v1/admin/cache/purge", h.HandlePurge)
	r.Post("/v1/admin/cache/purge-all", h.HandlePurgeAll)
	r.Get("/v1/admin/audit/recent", h.HandleAuditRecent)
}

// HandleResolve handles POST /v1/eol/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resolved, err := h.service.Resolve(ctx, req.Name, req.Version)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolution failed",
			"request_id", requestID,
			"name", req.Name,
			"version", req.Version,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "resolution served",
		"request_id", requestID,
		"name", req.Name,
		"status", resolved.Status,
		"confidence", resolved.Confidence,
		"source", resolved.ContributingResolver,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResolved(resolved))
}

// HandleResolveBatch handles POST /v1/eol/resolve-batch requests.
func (h *Handler) HandleResolveBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if len(req.Queries) > h.maxBatchSize {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("batch size exceeds the limit of %d", h.maxBatchSize)))
		return
	}

	resolved, err := h.service.ResolveBatch(ctx, req.Requests())
	if err != nil {
		h.logger.ErrorContext(ctx, "batch resolution failed",
			"request_id", requestID,
			"batch_size", len(req.Queries),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch resolution served",
		"request_id", requestID,
		"batch_size", len(req.Queries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResolvedBatch(resolved))
}

// HandleCacheStats handles GET /v1/admin/cache/stats requests.
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.CacheStats(r.Context()))
}

// HandlePurge handles POST /v1/admin/cache/purge requests.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PurgeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Purge(ctx, req.Name, req.Version); err != nil {
		h.logger.ErrorContext(ctx, "cache purge failed",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	target := req.Name
	if req.Version != "" {
		target += "@" + req.Version
	}
	h.recordAudit(ctx, audit.Event{Action: audit.ActionCachePurge, Target: target})

	h.logger.InfoContext(ctx, "cache entry purged",
		"request_id", requestID,
		"name", req.Name,
		"version", req.Version,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandlePurgeAll handles POST /v1/admin/cache/purge-all requests.
func (h *Handler) HandlePurgeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.service.PurgeAll(ctx); err != nil {
		h.logger.ErrorContext(ctx, "cache purge-all failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.recordAudit(ctx, audit.Event{Action: audit.ActionCachePurgeAll})

	h.logger.InfoContext(ctx, "cache purged", "request_id", requestID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAuditRecent handles GET /v1/admin/audit/recent requests. The limit
// query parameter pages the trail, newest first.
func (h *Handler) HandleAuditRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, AuditTrailResponse{Events: events})
}

// recordAudit appends the event to the trail. A failed append never fails
// the admin action itself.
func (h *Handler) recordAudit(ctx context.Context, event audit.Event) {
	if err := h.audit.Record(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"request_id", requestcontext.RequestID(ctx),
			"action", event.Action,
			"error", err,
		)
	}
}
