package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	"github.com/FACorreiaa/couple-finance/pkg/config"
	"github.com/FACorreiaa/couple-finance/pkg/metrics"
)

func TestInitServices_FailedSchedulerIsReleasedByCleanup(t *testing.T) {
	deps := &Dependencies{
		Config: &config.Config{Sweep: config.SweepConfig{
			Enabled:    true,
			Schedule:   "not a schedule",
			RunOnStart: true,
		}},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: metrics.New(),
		Clock:   recurring.NewZoneClock(recurring.FixedZone(-3)),
	}

	err := deps.initServices()
	require.Error(t, err)
	require.NotNil(t, deps.Scheduler)

	deps.Cleanup()
	assert.Nil(t, deps.Scheduler)
	assert.Nil(t, deps.DB)

	// Second call is a no-op
	assert.NotPanics(t, deps.Cleanup)
}
