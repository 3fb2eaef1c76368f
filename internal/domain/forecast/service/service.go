// Package service computes balance projections for a group from its stored rules and
// accounts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring/repository"
	"github.com/FACorreiaa/couple-finance/pkg/metrics"
)

// ErrSourcesUnavailable wraps any failure to load the rules or accounts of a group
var ErrSourcesUnavailable = errors.New("couldn't compute projection")

const defaultCacheSize = 1024

// Service loads projection inputs and runs the projector
type Service struct {
	rules     repository.RuleRepository
	accounts  repository.AccountRepository
	projector *forecast.Projector
	clock     recurring.Clock
	cache     *projectionCache
	flight    singleflight.Group
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// NewService creates a projection service. A zero cacheTTL disables caching.
func NewService(
	rules repository.RuleRepository,
	accounts repository.AccountRepository,
	projector *forecast.Projector,
	clock recurring.Clock,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		rules:     rules,
		accounts:  accounts,
		projector: projector,
		clock:     clock,
		cache:     newProjectionCache(cacheTTL, defaultCacheSize),
		logger:    logger,
		tracer:    otel.Tracer("github.com/FACorreiaa/couple-finance/forecast"),
	}
}

// WithMetrics records latency, cache results and alerts on m
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Options returns the projector options in effect
func (s *Service) Options() forecast.Options {
	return s.projector.Options()
}

// GetProjection projects the group's balance over the horizon starting today, with an
// optional hypothetical entry (nil for none). Identical inputs within the cache TTL
// share one computed projection.
func (s *Service) GetProjection(ctx context.Context, groupID uuid.UUID, hyp forecast.Hypothetical) (*forecast.Projection, error) {
	hyp = forecast.Canonical(hyp)
	ctx, span := s.tracer.Start(ctx, "forecast.GetProjection", trace.WithAttributes(
		attribute.String("group_id", groupID.String()),
		attribute.Bool("hypothetical", hyp != nil),
	))
	defer span.End()

	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ProjectionLatency.Observe(time.Since(started).Seconds())
		}
	}()

	if hyp != nil {
		if err := hyp.Validate(); err != nil {
			return nil, err
		}
	}

	today := s.clock.Today()

	accounts, err := s.accounts.ListActiveAccounts(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list accounts")
		return nil, fmt.Errorf("%w: failed to load accounts: %w", ErrSourcesUnavailable, err)
	}

	rules, err := s.rules.ListActiveRules(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list rules")
		return nil, fmt.Errorf("%w: failed to load recurring rules: %w", ErrSourcesUnavailable, err)
	}

	key := forecast.Key(accounts, rules, hyp, today, s.projector.Options())
	if p, ok := s.cache.get(key); ok {
		s.observeCache("hit")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return p, nil
	}
	s.observeCache("miss")

	v, _, shared := s.flight.Do(key, func() (any, error) {
		p := s.projector.Project(accounts, rules, hyp, today)
		s.cache.put(key, p)
		s.observeAlerts(p)
		return p, nil
	})
	projection := v.(*forecast.Projection)

	s.logger.Debug("projection computed",
		slog.String("group_id", groupID.String()),
		slog.String("today", today.Format(time.DateOnly)),
		slog.Int("accounts", len(accounts)),
		slog.Int("rules", len(rules)),
		slog.Int("alerts", len(projection.Alerts)),
		slog.Bool("shared", shared),
	)

	return projection, nil
}

func (s *Service) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (s *Service) observeAlerts(p *forecast.Projection) {
	if s.metrics == nil {
		return
	}
	for _, a := range p.Alerts {
		s.metrics.ProjectionAlerts.WithLabelValues(string(a.Kind)).Inc()
	}
}
