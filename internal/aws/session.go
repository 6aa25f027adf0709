package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	budgetstypes "github.com/aws/aws-sdk-go-v2/service/budgets/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/provider"
)

// DefaultRegion is used when neither the profile nor the environment sets one.
// The Budgets API is global and served from us-east-1.
const DefaultRegion = "us-east-1"

var errNoBudgets = errors.New("no budgets configured for account")

// BudgetsAPI is the part of the Budgets client the session calls
type BudgetsAPI interface {
	DescribeBudgets(ctx context.Context, params *budgets.DescribeBudgetsInput, optFns ...func(*budgets.Options)) (*budgets.DescribeBudgetsOutput, error)
}

// ConfigLoader loads the shared AWS configuration; config.LoadDefaultConfig by default
type ConfigLoader func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error)

// Session is a CloudAccountSession for one AWS account. The aws.Config
// handle is created on first use and reused by every client afterwards.
type Session struct {
	accountID string
	logger    *logger.Logger

	loadConfig ConfigLoader
	newBudgets func(aws.Config) BudgetsAPI
	newEC2     func(aws.Config) ec2.DescribeInstancesAPIClient

	mu     sync.Mutex
	creds  provider.Credentials
	handle *aws.Config // nil until first use
}

// Verify that Session implements provider.UsageProvider
var _ provider.UsageProvider = (*Session)(nil)

// Option is a functional option for session configuration
type Option func(*Session)

// WithHandle installs a ready aws.Config so no shared config is loaded
func WithHandle(cfg aws.Config) Option {
	return func(s *Session) {
		s.handle = &cfg
	}
}

// WithConfigLoader replaces config.LoadDefaultConfig
func WithConfigLoader(loader ConfigLoader) Option {
	return func(s *Session) {
		s.loadConfig = loader
	}
}

// WithBudgetsClient replaces the Budgets client constructor
func WithBudgetsClient(fn func(aws.Config) BudgetsAPI) Option {
	return func(s *Session) {
		s.newBudgets = fn
	}
}

// WithEC2Client replaces the EC2 client constructor
func WithEC2Client(fn func(aws.Config) ec2.DescribeInstancesAPIClient) Option {
	return func(s *Session) {
		s.newEC2 = fn
	}
}

// NewSession creates a session for accountID using the given credential selection
func NewSession(accountID string, creds provider.Credentials, log *logger.Logger, opts ...Option) (*Session, error) {
	if accountID == "" {
		return nil, fmt.Errorf("aws account id is required")
	}
	if !creds.Valid() {
		return nil, &provider.InvalidStateError{Reason: "no credential selection"}
	}

	s := &Session{
		accountID:  accountID,
		logger:     log,
		creds:      creds,
		loadConfig: config.LoadDefaultConfig,
		newBudgets: func(cfg aws.Config) BudgetsAPI {
			return budgets.NewFromConfig(cfg)
		},
		newEC2: func(cfg aws.Config) ec2.DescribeInstancesAPIClient {
			return ec2.NewFromConfig(cfg)
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Name returns the provider type
func (s *Session) Name() provider.ProviderType {
	return provider.ProviderAWS
}

// SetProfileName switches to the named profile. Ambient sessions cannot
// switch, and neither can a session whose handle already exists: the cached
// clients would silently keep the old identity.
func (s *Session) SetProfileName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds.IsAmbient() {
		return &provider.InvalidStateError{Reason: "cannot set profile name when using ambient credentials"}
	}
	if s.handle != nil {
		return &provider.InvalidStateError{Reason: "cannot set profile name after the session handle was created"}
	}

	s.creds = provider.NamedProfile(name)
	return nil
}

// Credentials returns the current credential selection
func (s *Session) Credentials() provider.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// awsConfig returns the memoized handle, creating it on first call
func (s *Session) awsConfig(ctx context.Context) (aws.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return *s.handle, nil
	}

	optFns := []func(*config.LoadOptions) error{}
	if profile, ok := s.creds.Profile(); ok {
		optFns = append(optFns, config.WithSharedConfigProfile(profile))
	}

	cfg, err := s.loadConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, &provider.UpstreamError{
			Provider:  provider.ProviderAWS,
			Service:   "config",
			Operation: "LoadDefaultConfig",
			Cause:     fmt.Errorf("%s: %w", s.creds, err),
		}
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	s.logger.Debug("AWS session created",
		"account_id", s.accountID,
		"credentials", s.creds.String(),
		"region", cfg.Region)

	s.handle = &cfg
	return cfg, nil
}

// MonthlyCost returns the first budget's actual and forecasted spend
func (s *Session) MonthlyCost(ctx context.Context) (provider.Cost, error) {
	cfg, err := s.awsConfig(ctx)
	if err != nil {
		return provider.Cost{}, err
	}

	resp, err := s.newBudgets(cfg).DescribeBudgets(ctx, &budgets.DescribeBudgetsInput{
		AccountId: aws.String(s.accountID),
	})
	if err != nil {
		return provider.Cost{}, upstream("budgets", "DescribeBudgets", err)
	}
	if len(resp.Budgets) == 0 {
		return provider.Cost{}, upstream("budgets", "DescribeBudgets", fmt.Errorf("%w %s", errNoBudgets, s.accountID))
	}

	budget := resp.Budgets[0]
	if budget.CalculatedSpend == nil {
		return provider.Cost{}, upstream("budgets", "DescribeBudgets",
			fmt.Errorf("budget %q has no calculated spend", aws.ToString(budget.BudgetName)))
	}

	actual, err := parseSpend(budget.CalculatedSpend.ActualSpend)
	if err != nil {
		return provider.Cost{}, upstream("budgets", "DescribeBudgets",
			fmt.Errorf("budget %q actual spend: %w", aws.ToString(budget.BudgetName), err))
	}
	forecast, err := parseSpend(budget.CalculatedSpend.ForecastedSpend)
	if err != nil {
		return provider.Cost{}, upstream("budgets", "DescribeBudgets",
			fmt.Errorf("budget %q forecasted spend: %w", aws.ToString(budget.BudgetName), err))
	}

	s.logger.Debug("Budget spend retrieved",
		"account_id", s.accountID,
		"budget", aws.ToString(budget.BudgetName),
		"budgets_total", len(resp.Budgets))

	return provider.Cost{
		Actual:   actual,
		Forecast: forecast,
		Currency: aws.ToString(budget.CalculatedSpend.ActualSpend.Unit),
	}, nil
}

// ServerCount counts every instance whose state is not terminated
func (s *Session) ServerCount(ctx context.Context) (int, error) {
	cfg, err := s.awsConfig(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	pages := ec2.NewDescribeInstancesPaginator(s.newEC2(cfg), &ec2.DescribeInstancesInput{})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return 0, upstream("ec2", "DescribeInstances", err)
		}
		count += countLive(page.Reservations)
	}

	return count, nil
}

// countLive counts instances in every state except terminated
func countLive(reservations []ec2types.Reservation) int {
	n := 0
	for _, resv := range reservations {
		for _, inst := range resv.Instances {
			if inst.State != nil && inst.State.Name == ec2types.InstanceStateNameTerminated {
				continue
			}
			n++
		}
	}
	return n
}

// parseSpend converts a Budgets amount string into a float
func parseSpend(spend *budgetstypes.Spend) (float64, error) {
	if spend == nil || spend.Amount == nil {
		return 0, errors.New("amount missing")
	}
	v, err := strconv.ParseFloat(*spend.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", *spend.Amount, err)
	}
	return v, nil
}

// upstream wraps an SDK error, keeping the API error code when present
func upstream(service, operation string, err error) *provider.UpstreamError {
	e := &provider.UpstreamError{
		Provider:  provider.ProviderAWS,
		Service:   service,
		Operation: operation,
		Cause:     err,
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		e.Code = apiErr.ErrorCode()
	}
	return e
}
