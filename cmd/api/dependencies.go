package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	forecasthandler "github.com/FACorreiaa/couple-finance/internal/domain/forecast/handler"
	forecastservice "github.com/FACorreiaa/couple-finance/internal/domain/forecast/service"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	recurringhandler "github.com/FACorreiaa/couple-finance/internal/domain/recurring/handler"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring/repository"
	recurringservice "github.com/FACorreiaa/couple-finance/internal/domain/recurring/service"

	"github.com/FACorreiaa/couple-finance/pkg/config"
	"github.com/FACorreiaa/couple-finance/pkg/cron"
	"github.com/FACorreiaa/couple-finance/pkg/db"
	"github.com/FACorreiaa/couple-finance/pkg/metrics"
	"github.com/FACorreiaa/couple-finance/pkg/push"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Clock   *recurring.ZoneClock

	// Repositories
	RecurringRepo *repository.PostgresRepository

	// Services
	Sweeper         *recurringservice.Sweeper
	ForecastService *forecastservice.Service
	PushService     *push.Service
	Scheduler       *cron.Scheduler

	// Handlers
	RecurringHandler *recurringhandler.RecurringHandler
	ForecastHandler  *forecasthandler.ForecastHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Clock:   recurring.NewZoneClock(recurring.FixedZone(cfg.Forecast.TZOffsetHours)),
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize services
	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		slog.String("timezone", deps.Clock.Location().String()),
		slog.String("today", deps.Clock.Today().Format(time.DateOnly)),
	)

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.RecurringRepo = repository.NewPostgresRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.Sweeper = recurringservice.NewSweeper(d.RecurringRepo, d.RecurringRepo, d.Clock, d.Logger).
		WithMetrics(d.Metrics)

	projector := forecast.NewProjector(forecast.Options{
		HorizonDays:              d.Config.Forecast.HorizonDays,
		LowBalanceThresholdMinor: d.Config.Forecast.LowBalanceThresholdMinor,
		CurrencyCode:             d.Config.Forecast.CurrencyCode,
	})
	d.ForecastService = forecastservice.NewService(
		d.RecurringRepo,
		d.RecurringRepo,
		projector,
		d.Clock,
		d.Config.Forecast.CacheTTL,
		d.Logger,
	).WithMetrics(d.Metrics)

	// Push notification service for balance alerts
	d.PushService = push.NewService(d.Logger)

	if d.Config.Sweep.Enabled {
		d.Scheduler = cron.NewScheduler(d.Sweeper, d.Clock.Location(), d.Logger)
		if d.Config.Sweep.PushAlertsEnabled {
			d.Scheduler.WithAlerts(d.ForecastService, d.RecurringRepo, d.PushService)
		}
		if err := d.Scheduler.Start(d.Config.Sweep.Schedule); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		// Catch up on days missed while the server was down
		if d.Config.Sweep.RunOnStart {
			d.Scheduler.RunNow()
		}
	}

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.RecurringHandler = recurringhandler.NewRecurringHandler(d.Sweeper, d.Logger)
	d.ForecastHandler = forecasthandler.NewForecastHandler(d.ForecastService, forecasthandler.Settings{
		Timezone:            d.Clock.Location().String(),
		PartnerSyncInterval: d.Config.Forecast.PartnerSyncInterval,
		EuropeanAmounts:     d.Config.Forecast.DecimalComma,
	}, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources. It is safe to call on partially initialized
// dependencies and more than once.
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
		d.Scheduler = nil
	}
	if d.DB != nil {
		d.DB.Close()
		d.DB = nil
	}
	d.Logger.Info("cleanup completed")
}
