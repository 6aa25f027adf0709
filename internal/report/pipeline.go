package report

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zgpcy/cost-report/internal/aws"
	"github.com/zgpcy/cost-report/internal/azure"
	"github.com/zgpcy/cost-report/internal/clock"
	"github.com/zgpcy/cost-report/internal/collector"
	"github.com/zgpcy/cost-report/internal/config"
	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/message"
	"github.com/zgpcy/cost-report/internal/metrics"
	"github.com/zgpcy/cost-report/internal/notify"
	"github.com/zgpcy/cost-report/internal/provider"
)

// ConfigLoader resolves the run's configuration; *config.Resolver implements it
type ConfigLoader interface {
	Load() (*config.Config, error)
}

// ProviderFactory opens the cloud account session for a configuration
type ProviderFactory func(cfg *config.Config, creds provider.Credentials, log *logger.Logger) (provider.UsageProvider, error)

// NotifierFactory builds the live chat notifier
type NotifierFactory func(cfg config.Notify, log *logger.Logger) (notify.Notifier, error)

// SnapshotPusher publishes the run's snapshot after delivery
type SnapshotPusher interface {
	Push(ctx context.Context, providerType provider.ProviderType, accountID string, snap provider.Snapshot) error
}

// PusherFactory returns nil when pushing is disabled
type PusherFactory func(cfg config.Metrics, log *logger.Logger) SnapshotPusher

// Pipeline runs one report: load config, open the session, collect usage,
// render the message and deliver or print it
type Pipeline struct {
	loader ConfigLoader
	creds  provider.Credentials
	dryRun bool

	stdout    io.Writer
	logOutput io.Writer
	clock     clock.Clock // Time provider for testing
	logger    *logger.Logger

	newProvider ProviderFactory
	newNotifier NotifierFactory
	newPusher   PusherFactory

	state Stage
}

// Option is a functional option for pipeline configuration
type Option func(*Pipeline)

// WithDryRun prints the message to stdout instead of sending it
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// WithStdout replaces os.Stdout as the dry-run destination
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = w
	}
}

// WithLogOutput replaces os.Stderr as the log destination
func WithLogOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		p.logOutput = w
	}
}

// WithClock replaces the clock that dates the report
func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// WithProviderFactory replaces DefaultProviderFactory
func WithProviderFactory(f ProviderFactory) Option {
	return func(p *Pipeline) {
		p.newProvider = f
	}
}

// WithNotifierFactory replaces DefaultNotifierFactory
func WithNotifierFactory(f NotifierFactory) Option {
	return func(p *Pipeline) {
		p.newNotifier = f
	}
}

// WithPusherFactory replaces DefaultPusherFactory
func WithPusherFactory(f PusherFactory) Option {
	return func(p *Pipeline) {
		p.newPusher = f
	}
}

// New creates a pipeline reading its configuration from loader
func New(loader ConfigLoader, creds provider.Credentials, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:      loader,
		creds:       creds,
		stdout:      os.Stdout,
		logOutput:   os.Stderr,
		clock:       clock.RealClock{}, // Use real system time by default
		newProvider: DefaultProviderFactory,
		newNotifier: DefaultNotifierFactory,
		newPusher:   DefaultPusherFactory,
		state:       StageInit,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.NewWithWriter(p.logOutput, config.DefaultLogLevel)
	return p
}

// State returns the last state the pipeline reached
func (p *Pipeline) State() Stage {
	return p.state
}

// enter records a reached state and logs it
func (p *Pipeline) enter(stage Stage, fields ...any) {
	p.state = stage
	p.logger.Info("Report stage reached", append([]any{"stage", string(stage)}, fields...)...)
}

func (p *Pipeline) fail(stage Stage, err error) error {
	p.logger.Error("Report failed", "stage", string(stage), "error", err)
	return &StageError{Stage: stage, Err: err}
}

// Run executes the pipeline once. Every failure is returned as *StageError
// wrapping the component's typed error. A failed metrics push is only logged.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.state != StageInit {
		return fmt.Errorf("pipeline already ran (state %s)", p.state)
	}

	cfg, err := p.loader.Load()
	if err != nil {
		return p.fail(StageConfigLoaded, err)
	}
	p.logger = logger.NewWithWriter(p.logOutput, cfg.LogLevel).WithFields(
		"provider", cfg.Cloud.Provider,
		"account_id", cfg.Cloud.AccountID,
	)
	p.enter(StageConfigLoaded, "dry_run", p.dryRun, "credentials", p.creds.String())

	sess, err := p.newProvider(cfg, p.creds, p.logger)
	if err != nil {
		return p.fail(StageSessionEstablished, err)
	}
	p.enter(StageSessionEstablished)

	snap, err := collector.NewUsageCollector(sess, p.logger).Collect(ctx)
	if err != nil {
		return p.fail(StageUsageCollected, err)
	}
	p.enter(StageUsageCollected,
		"actual", snap.ActualSpend,
		"forecast", snap.ForecastSpend,
		"instances", snap.InstanceCount)

	msg, err := message.Render(cfg.Notify.MessageTemplate, snap, p.clock.Now())
	if err != nil {
		return p.fail(StageMessageRendered, err)
	}
	p.enter(StageMessageRendered, "length", len(msg))

	terminal := StageDelivered
	var notifier notify.Notifier
	if p.dryRun {
		terminal = StagePrinted
		notifier = notify.NewStdout(p.stdout)
	} else {
		notifier, err = p.newNotifier(cfg.Notify, p.logger)
		if err != nil {
			return p.fail(terminal, err)
		}
	}

	if err := notifier.Deliver(ctx, msg); err != nil {
		return p.fail(terminal, err)
	}
	p.enter(terminal)

	p.push(ctx, cfg, sess.Name(), snap)
	return nil
}

// push publishes the snapshot when a Pushgateway is configured
func (p *Pipeline) push(ctx context.Context, cfg *config.Config, providerType provider.ProviderType, snap provider.Snapshot) {
	pusher := p.newPusher(cfg.Metrics, p.logger)
	if pusher == nil {
		return
	}
	if err := pusher.Push(ctx, providerType, cfg.Cloud.AccountID, snap); err != nil {
		p.logger.Warn("Failed to push metrics", "error", err)
	}
}

// DefaultProviderFactory opens an AWS or Azure session according to cloud.provider
func DefaultProviderFactory(cfg *config.Config, creds provider.Credentials, log *logger.Logger) (provider.UsageProvider, error) {
	switch provider.ProviderType(cfg.Cloud.Provider) {
	case provider.ProviderAWS:
		sess, err := aws.NewSession(cfg.Cloud.AccountID, creds, log)
		if err != nil {
			return nil, err
		}
		return sess, nil
	case provider.ProviderAzure:
		sess, err := azure.NewSession(cfg.Cloud.AccountID, creds, log)
		if err != nil {
			return nil, err
		}
		return sess, nil
	default:
		return nil, &config.ConfigError{
			Field: "cloud.provider",
			Cause: fmt.Errorf("unsupported provider %q", cfg.Cloud.Provider),
		}
	}
}

// DefaultNotifierFactory builds the Zulip notifier
func DefaultNotifierFactory(cfg config.Notify, log *logger.Logger) (notify.Notifier, error) {
	z, err := notify.NewZulip(cfg, notify.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return z, nil
}

// DefaultPusherFactory builds a Pushgateway pusher, or nil when none is configured
func DefaultPusherFactory(cfg config.Metrics, log *logger.Logger) SnapshotPusher {
	p := metrics.NewPusher(cfg, log)
	if p == nil {
		return nil
	}
	return p
}
