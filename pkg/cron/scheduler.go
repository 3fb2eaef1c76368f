// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring/service"
	"github.com/FACorreiaa/couple-finance/pkg/money"
	"github.com/FACorreiaa/couple-finance/pkg/push"
)

// GroupSweeper materializes due rules for every group
type GroupSweeper interface {
	SweepAll(ctx context.Context) ([]*service.SweepResult, error)
}

// ProjectionSource computes a group's projection
type ProjectionSource interface {
	GetProjection(ctx context.Context, groupID uuid.UUID, hyp forecast.Hypothetical) (*forecast.Projection, error)
}

// TokenSource lists the push tokens of a group's members
type TokenSource interface {
	ListPushTokens(ctx context.Context, groupID uuid.UUID) ([]string, error)
}

// AlertNotifier delivers a balance alert
type AlertNotifier interface {
	NotifyBalanceAlert(ctx context.Context, tokens []string, alert push.BalanceAlert) (*push.BatchResult, error)
}

// RunStats summarizes one scheduled run
type RunStats struct {
	Groups       int
	Materialized int
	Failed       int
	AlertsSent   int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	sweeper GroupSweeper
	logger  *slog.Logger

	projections ProjectionSource
	tokens      TokenSource
	notifier    AlertNotifier
}

// NewScheduler creates a new job scheduler evaluating schedules in loc, the same
// reference location the sweep uses for "today".
func NewScheduler(sweeper GroupSweeper, loc *time.Location, logger *slog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
	)

	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		logger:  logger,
	}
}

// WithAlerts enables negative balance push alerts after each sweep
func (s *Scheduler) WithAlerts(projections ProjectionSource, tokens TokenSource, notifier AlertNotifier) *Scheduler {
	s.projections = projections
	s.tokens = tokens
	s.notifier = notifier
	return s
}

// Start registers the daily sweep on schedule (standard 5-field format) and starts the scheduler.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.dailySweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the daily sweep.
func (s *Scheduler) RunNow() {
	go s.dailySweep()
}

func (s *Scheduler) dailySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.Run(ctx)
}

// Run sweeps every group and, when alerts are enabled, pushes each group's
// negative balance alert to its members.
func (s *Scheduler) Run(ctx context.Context) RunStats {
	var stats RunStats

	s.logger.Info("starting daily recurring sweep")

	results, err := s.sweeper.SweepAll(ctx)
	if err != nil {
		s.logger.Error("failed to sweep groups", slog.Any("error", err))
		return stats
	}

	for _, res := range results {
		stats.Groups++
		stats.Materialized += res.Materialized
		stats.Failed += res.Failed

		if s.notifier == nil {
			continue
		}
		if sent := s.alertGroup(ctx, res.GroupID); sent {
			stats.AlertsSent++
		}
	}

	s.logger.Info("daily recurring sweep completed",
		slog.Int("groups", stats.Groups),
		slog.Int("materialized", stats.Materialized),
		slog.Int("failed", stats.Failed),
		slog.Int("alerts_sent", stats.AlertsSent),
	)
	return stats
}

func (s *Scheduler) alertGroup(ctx context.Context, groupID uuid.UUID) bool {
	projection, err := s.projections.GetProjection(ctx, groupID, nil)
	if err != nil {
		s.logger.Warn("failed to project group",
			slog.String("group_id", groupID.String()),
			slog.Any("error", err),
		)
		return false
	}

	alert := projection.Alert(forecast.AlertNegative)
	if alert == nil {
		return false
	}

	tokens, err := s.tokens.ListPushTokens(ctx, groupID)
	if err != nil {
		s.logger.Warn("failed to list push tokens",
			slog.String("group_id", groupID.String()),
			slog.Any("error", err),
		)
		return false
	}
	if len(tokens) == 0 {
		return false
	}

	_, err = s.notifier.NotifyBalanceAlert(ctx, tokens, push.BalanceAlert{
		GroupID:      groupID.String(),
		Kind:         string(alert.Kind),
		Date:         alert.Date,
		Message:      alert.Message,
		BalanceLabel: money.New(alert.BalanceMinor, projection.CurrencyCode).Display(),
	})
	if err != nil {
		s.logger.Warn("failed to push balance alert",
			slog.String("group_id", groupID.String()),
			slog.Any("error", err),
		)
		return false
	}
	return true
}
