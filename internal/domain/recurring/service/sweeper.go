// Package service materializes due recurring rules into transactions.
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

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring/repository"
	"github.com/FACorreiaa/couple-finance/pkg/metrics"
)

// SweepResult summarizes one sweep of a group's rules
type SweepResult struct {
	GroupID      uuid.UUID               `json:"group_id"`
	Today        time.Time               `json:"today"`
	Evaluated    int                     `json:"evaluated"`
	Due          int                     `json:"due"`
	Materialized int                     `json:"materialized"`
	Duplicates   int                     `json:"duplicates"`
	Failed       int                     `json:"failed"`
	Transactions []recurring.Transaction `json:"transactions"`
	Failures     []RuleFailure           `json:"failures,omitempty"`
	Balances     map[uuid.UUID]int64     `json:"balances,omitempty"`
}

// RuleFailure records a rule whose materialization failed and will be retried next sweep
type RuleFailure struct {
	RuleID uuid.UUID `json:"rule_id"`
	Error  string    `json:"error"`
}

// Sweeper runs the due-today evaluation and applies its side effects
type Sweeper struct {
	rules   repository.RuleRepository
	store   repository.MaterializationStore
	clock   recurring.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewSweeper creates a new sweeper
func NewSweeper(rules repository.RuleRepository, store repository.MaterializationStore, clock recurring.Clock, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		rules:  rules,
		store:  store,
		clock:  clock,
		logger: logger,
		tracer: otel.Tracer("github.com/FACorreiaa/couple-finance/recurring"),
	}
}

// WithMetrics records sweep outcomes on m
func (s *Sweeper) WithMetrics(m *metrics.Metrics) *Sweeper {
	s.metrics = m
	return s
}

// Sweep materializes every rule of the group that is due today.
// Only a failure to read the rules is returned; per-rule failures are logged, counted and
// left for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context, groupID uuid.UUID) (*SweepResult, error) {
	today := s.clock.Today()
	return s.sweepOn(ctx, groupID, today)
}

func (s *Sweeper) sweepOn(ctx context.Context, groupID uuid.UUID, today time.Time) (*SweepResult, error) {
	ctx, span := s.tracer.Start(ctx, "recurring.Sweep", trace.WithAttributes(
		attribute.String("group_id", groupID.String()),
		attribute.String("today", today.Format(time.DateOnly)),
	))
	defer span.End()

	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
		}
	}()

	rules, err := s.rules.ListActiveRules(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list rules")
		return nil, fmt.Errorf("failed to load recurring rules: %w", err)
	}

	result, err := s.sweepRules(ctx, groupID, today, rules)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("rules.due", result.Due),
		attribute.Int("rules.materialized", result.Materialized),
		attribute.Int("rules.failed", result.Failed),
	)
	return result, nil
}

// sweepRules evaluates an already loaded rule set against today
func (s *Sweeper) sweepRules(ctx context.Context, groupID uuid.UUID, today time.Time, rules []recurring.Rule) (*SweepResult, error) {
	result := &SweepResult{
		GroupID:      groupID,
		Today:        today,
		Transactions: []recurring.Transaction{},
	}

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !rule.IsActive {
			continue
		}
		result.Evaluated++

		if !recurring.IsDueOn(rule, today) {
			continue
		}
		result.Due++

		if err := rule.Normalize().Validate(); err != nil {
			s.logger.Warn("skipping invalid recurring rule",
				slog.String("rule_id", rule.ID.String()),
				slog.String("group_id", groupID.String()),
				slog.Any("error", err),
			)
			result.Failed++
			result.Failures = append(result.Failures, RuleFailure{RuleID: rule.ID, Error: err.Error()})
			s.observe(metrics.OutcomeFailed)
			continue
		}

		materialized, err := s.store.Materialize(ctx, rule, today)
		switch {
		case errors.Is(err, repository.ErrAlreadyMaterialized):
			// The partner's sweep got there first
			s.logger.Debug("recurring rule already materialized",
				slog.String("rule_id", rule.ID.String()),
				slog.String("group_id", groupID.String()),
			)
			result.Duplicates++
			s.observe(metrics.OutcomeDuplicate)
		case err != nil:
			s.logger.Warn("failed to materialize recurring rule",
				slog.String("rule_id", rule.ID.String()),
				slog.String("group_id", groupID.String()),
				slog.Any("error", err),
			)
			result.Failed++
			result.Failures = append(result.Failures, RuleFailure{RuleID: rule.ID, Error: err.Error()})
			s.observe(metrics.OutcomeFailed)
		default:
			result.Materialized++
			result.Transactions = append(result.Transactions, materialized.Transaction)
			if result.Balances == nil {
				result.Balances = make(map[uuid.UUID]int64)
			}
			result.Balances[rule.AccountID] = materialized.AccountBalanceMinor
			s.observe(metrics.OutcomeMaterialized)
		}
	}

	s.logger.Info("recurring sweep completed",
		slog.String("group_id", groupID.String()),
		slog.String("today", today.Format(time.DateOnly)),
		slog.Int("evaluated", result.Evaluated),
		slog.Int("due", result.Due),
		slog.Int("materialized", result.Materialized),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("failed", result.Failed),
	)

	return result, nil
}

// SweepAll sweeps every group owning active rules, using one notion of today for all of them.
// Group failures are logged and skipped.
func (s *Sweeper) SweepAll(ctx context.Context) ([]*SweepResult, error) {
	groups, err := s.rules.ListGroupsWithActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	today := s.clock.Today()
	results := make([]*SweepResult, 0, len(groups))
	for _, groupID := range groups {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := s.sweepOn(ctx, groupID, today)
		if err != nil {
			s.logger.Warn("failed to sweep group",
				slog.String("group_id", groupID.String()),
				slog.Any("error", err),
			)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Sweeper) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.SweepRules.WithLabelValues(outcome).Inc()
	}
}
