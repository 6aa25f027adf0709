package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/zgpcy/cost-report/internal/clock"
	"github.com/zgpcy/cost-report/internal/config"
	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/provider"
)

const defaultTimeout = 10 * time.Second

// Pusher publishes a snapshot to a Prometheus Pushgateway
type Pusher struct {
	url        string
	job        string
	httpClient *http.Client
	clock      clock.Clock // Time provider for testing
	logger     *logger.Logger
}

// Option is a functional option for pusher configuration
type Option func(*Pusher)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pusher) {
		p.httpClient = c
	}
}

// WithClock replaces the clock used for the success timestamp
func WithClock(c clock.Clock) Option {
	return func(p *Pusher) {
		p.clock = c
	}
}

// NewPusher returns nil when no Pushgateway URL is configured
func NewPusher(cfg config.Metrics, log *logger.Logger, opts ...Option) *Pusher {
	if cfg.PushgatewayURL == "" {
		return nil
	}

	job := cfg.Job
	if job == "" {
		job = config.DefaultJob
	}

	p := &Pusher{
		url:        cfg.PushgatewayURL,
		job:        job,
		httpClient: &http.Client{Timeout: defaultTimeout},
		clock:      clock.RealClock{}, // Use real system time by default
		logger:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push replaces the metrics of the account's group with snap
func (p *Pusher) Push(ctx context.Context, providerType provider.ProviderType, accountID string, snap provider.Snapshot) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewSnapshotCollector(providerType, snap, p.clock.Now())); err != nil {
		return fmt.Errorf("failed to register snapshot collector: %w", err)
	}

	err := push.New(p.url, p.job).
		Gatherer(reg).
		Grouping("account_id", accountID).
		Client(p.httpClient).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", p.url, err)
	}

	p.logger.Info("Metrics pushed",
		"pushgateway", p.url,
		"job", p.job,
		"account_id", accountID)

	return nil
}
