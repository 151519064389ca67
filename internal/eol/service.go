// Package eol resolves end-of-life and end-of-support answers for software
// inventory entries. The service normalizes raw product strings, consults the
// cache manager, and on a miss fans the query out to the selected knowledge
// sources, aggregating their candidates into one scored answer.
package eol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"sunset/internal/cache"
	"sunset/internal/confidence"
	"sunset/internal/domain"
	"sunset/internal/eol/metrics"
	"sunset/internal/normalize"
	"sunset/internal/resolver"
	dErrors "sunset/pkg/domain-errors"
)

const (
	defaultResolveTimeout   = 5 * time.Second
	defaultBatchConcurrency = 8
)

// Request is one name/version pair in a batch resolution.
type Request struct {
	Name    string
	Version string
}

// Service orchestrates EOL resolution: normalization, cache lookup, source
// fan-out, and aggregation.
type Service struct {
	sources *resolver.Registry
	cache   *cache.Manager
	policy  confidence.Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   func() time.Time

	resolveTimeout   time.Duration
	batchConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the module metrics. Nil metrics disable recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithResolveTimeout sets the shared deadline for one source pass.
func WithResolveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resolveTimeout = d
		}
	}
}

// WithBatchConcurrency caps how many batch entries resolve at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// New constructs the resolution service over a source registry and a cache
// manager.
func New(sources *resolver.Registry, cacheManager *cache.Manager, policy confidence.Policy, opts ...Option) (*Service, error) {
	if sources == nil {
		return nil, fmt.Errorf("eol: source registry is required")
	}
	if cacheManager == nil {
		return nil, fmt.Errorf("eol: cache manager is required")
	}
	s := &Service{
		sources:          sources,
		cache:            cacheManager,
		policy:           policy,
		logger:           slog.Default(),
		tracer:           otel.Tracer("sunset/internal/eol"),
		clock:            time.Now,
		resolveTimeout:   defaultResolveTimeout,
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Resolve answers the EOL question for one product. The answer comes from the
// cache when a fresh entry exists; otherwise the selected sources are
// consulted and the aggregated result is cached before returning. A pass in
// which no source produces a usable candidate still yields an answer: status
// unknown at confidence zero, cached on the short tier so the next attempt
// comes soon.
func (s *Service) Resolve(ctx context.Context, name, version string) (*domain.ResolvedEOL, error) {
	start := time.Now()
	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "product name must not be blank")
	}

	q := normalize.ParseWithVersion(name, version)
	key := cache.Key(q.Normalized, q.Version)

	ctx, span := s.tracer.Start(ctx, "eol.Resolve", trace.WithAttributes(
		attribute.String("eol.query", q.Normalized),
		attribute.String("eol.version", q.Version),
	))
	defer span.End()

	resolved, err := s.cache.GetOrResolve(ctx, key, func(ctx context.Context) (*domain.ResolvedEOL, error) {
		return s.resolveFresh(ctx, key, q)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "resolution failed")
		s.metrics.ObserveResolveLatency("error", time.Since(start))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("eol.status", string(resolved.Status)),
		attribute.Float64("eol.confidence", resolved.Confidence),
	)
	s.metrics.ObserveResolveLatency("ok", time.Since(start))
	s.metrics.IncrementResolution(string(resolved.Status), resolved.ContributingResolver)

	s.logger.DebugContext(ctx, "resolution served",
		"query", q.Normalized,
		"version", q.Version,
		"status", resolved.Status,
		"confidence", resolved.Confidence,
		"source", resolved.ContributingResolver,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resolved, nil
}

// ResolveBatch resolves every entry concurrently and returns results in input
// order. The whole batch is validated up front so a bad entry rejects the
// request before any source traffic happens. One failing entry fails the
// batch; entries only fail on cancellation or infrastructure errors, not on
// unknown products.
func (s *Service) ResolveBatch(ctx context.Context, queries []Request) ([]*domain.ResolvedEOL, error) {
	for i, q := range queries {
		if strings.TrimSpace(q.Name) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("queries[%d]: product name must not be blank", i))
		}
	}
	if len(queries) == 0 {
		return []*domain.ResolvedEOL{}, nil
	}

	ctx, span := s.tracer.Start(ctx, "eol.ResolveBatch", trace.WithAttributes(
		attribute.Int("eol.batch_size", len(queries)),
	))
	defer span.End()
	s.metrics.ObserveBatchSize(len(queries))

	results := make([]*domain.ResolvedEOL, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			resolved, err := s.Resolve(gctx, q.Name, q.Version)
			if err != nil {
				return fmt.Errorf("queries[%d] %q: %w", i, q.Name, err)
			}
			results[i] = resolved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "batch resolution failed")
		return nil, err
	}
	return results, nil
}

// resolveFresh runs one aggregation pass and composes the resolved answer.
// Runs inside the cache manager's single flight, so concurrent callers of the
// same key share this work.
func (s *Service) resolveFresh(ctx context.Context, key string, q domain.Query) (*domain.ResolvedEOL, error) {
	selected := s.sources.Select(q.Normalized)
	best := s.aggregate(ctx, q, selected)
	if err := ctx.Err(); err != nil {
		// The caller abandoned the request; cache nothing on its behalf.
		return nil, err
	}
	now := s.clock()

	if best == nil {
		s.logger.WarnContext(ctx, "no source produced a usable candidate",
			"query", q.Normalized,
			"version", q.Version,
			"sources", len(selected),
		)
		return &domain.ResolvedEOL{
			QueryKey:    key,
			ProductName: q.Normalized,
			Version:     q.Version,
			Status:      domain.StatusUnknown,
			Confidence:  0.0,
			ComputedAt:  now,
		}, nil
	}

	c := best.candidate
	return &domain.ResolvedEOL{
		QueryKey:             key,
		ProductName:          q.Normalized,
		Version:              q.Version,
		Status:               domain.DeriveStatus(c.EOLDate, c.SupportDate, now),
		EOLDate:              c.EOLDate,
		SupportDate:          c.SupportDate,
		LatestVersion:        c.LatestVersion,
		Confidence:           s.policy.Score(q.Normalized, q.Version, c.ResolverID),
		ContributingResolver: c.ResolverID,
		ComputedAt:           now,
	}, nil
}

// Purge drops the cached resolution for one product from every tier.
func (s *Service) Purge(ctx context.Context, name, version string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "product name must not be blank")
	}
	q := normalize.ParseWithVersion(name, version)
	key := cache.Key(q.Normalized, q.Version)
	if err := s.cache.Purge(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "purge cached resolution")
	}
	s.logger.InfoContext(ctx, "cached resolution purged", "key", key)
	return nil
}

// PurgeAll drops every cached resolution from every tier.
func (s *Service) PurgeAll(ctx context.Context) error {
	if err := s.cache.PurgeAll(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "purge cached resolutions")
	}
	s.logger.InfoContext(ctx, "all cached resolutions purged")
	return nil
}

// CacheStats reports the cache manager's counters and tier occupancy.
func (s *Service) CacheStats(ctx context.Context) cache.Stats {
	return s.cache.Stats(ctx)
}

// Ready reports whether the service can answer queries. Readiness keys on the
// universal fallback source alone: vendor sources and the durable cache tier
// degrade gracefully, but without the fallback no query has a source.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.sources.Fallback().Resolver.Health(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "fallback source unreachable")
	}
	return nil
}
