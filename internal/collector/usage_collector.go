package collector

import (
	"context"
	"time"

	"github.com/zgpcy/cost-report/internal/clock"
	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/provider"
)

// UsageCollector gathers one usage snapshot from a cloud account session
type UsageCollector struct {
	cloudProvider provider.UsageProvider
	logger        *logger.Logger
	clock         clock.Clock // Time provider for testing
}

// NewUsageCollector creates a new UsageCollector
func NewUsageCollector(cloudProvider provider.UsageProvider, log *logger.Logger) *UsageCollector {
	return &UsageCollector{
		cloudProvider: cloudProvider,
		logger:        log,
		clock:         clock.RealClock{}, // Use real system time by default
	}
}

// Collect fetches the monthly cost first, then the server count. Errors from
// the provider are returned as they are so callers can match on their type.
func (c *UsageCollector) Collect(ctx context.Context) (provider.Snapshot, error) {
	start := c.clock.Now()

	cost, err := c.cloudProvider.MonthlyCost(ctx)
	if err != nil {
		c.logger.Error("Failed to fetch monthly cost",
			"provider", c.cloudProvider.Name(),
			"error", err)
		return provider.Snapshot{}, err
	}

	servers, err := c.cloudProvider.ServerCount(ctx)
	if err != nil {
		c.logger.Error("Failed to count servers",
			"provider", c.cloudProvider.Name(),
			"error", err)
		return provider.Snapshot{}, err
	}

	snap := provider.Snapshot{
		ActualSpend:   cost.Actual,
		ForecastSpend: cost.Forecast,
		Currency:      cost.Currency,
		InstanceCount: servers,
	}

	c.logger.Info("Usage collected",
		"provider", c.cloudProvider.Name(),
		"actual", snap.ActualSpend,
		"forecast", snap.ForecastSpend,
		"currency", snap.Currency,
		"instances", snap.InstanceCount,
		"duration", c.clock.Now().Sub(start).Round(time.Millisecond).String())

	return snap, nil
}
