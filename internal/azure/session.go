package azure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/zgpcy/cost-report/internal/clock"
	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/provider"
)

// Cost columns Azure may name the aggregated amount, in lookup order
var costColumns = []string{"Cost", "PreTaxCost", "totalCost"}

// CostQuerier is the part of the Cost Management query client the session calls
type CostQuerier interface {
	Usage(ctx context.Context, scope string, parameters armcostmanagement.QueryDefinition, options *armcostmanagement.QueryClientUsageOptions) (armcostmanagement.QueryClientUsageResponse, error)
}

// MachineCounter counts the virtual machines of a subscription
type MachineCounter interface {
	CountMachines(ctx context.Context) (int, error)
}

// Session is a CloudAccountSession for one Azure subscription. The token
// credential is created on first use and shared by both clients.
type Session struct {
	subscriptionID string
	logger         *logger.Logger
	clock          clock.Clock // Time provider for testing

	newCredential func() (azcore.TokenCredential, error)
	newQuerier    func(cred azcore.TokenCredential) (CostQuerier, error)
	newCounter    func(subscriptionID string, cred azcore.TokenCredential) (MachineCounter, error)

	mu     sync.Mutex
	creds  provider.Credentials
	handle azcore.TokenCredential // nil until first use
}

// Verify that Session implements provider.UsageProvider
var _ provider.UsageProvider = (*Session)(nil)

// Option is a functional option for session configuration
type Option func(*Session)

// WithHandle installs a ready credential so none is resolved from the environment
func WithHandle(cred azcore.TokenCredential) Option {
	return func(s *Session) {
		s.handle = cred
	}
}

// WithClock replaces the system clock used for the run-rate forecast
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithCostQuerier replaces the Cost Management client constructor
func WithCostQuerier(fn func(cred azcore.TokenCredential) (CostQuerier, error)) Option {
	return func(s *Session) {
		s.newQuerier = fn
	}
}

// WithMachineCounter replaces the Compute client constructor
func WithMachineCounter(fn func(subscriptionID string, cred azcore.TokenCredential) (MachineCounter, error)) Option {
	return func(s *Session) {
		s.newCounter = fn
	}
}

// NewSession creates a session for one subscription. Azure has no local
// named profiles: ambient credentials and the "default" profile both resolve
// through DefaultAzureCredential, any other profile is rejected.
func NewSession(subscriptionID string, creds provider.Credentials, log *logger.Logger, opts ...Option) (*Session, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("azure subscription id is required")
	}
	if !creds.Valid() {
		return nil, &provider.InvalidStateError{Reason: "no credential selection"}
	}
	if profile, ok := creds.Profile(); ok && profile != provider.DefaultProfile {
		return nil, unsupportedProfile(profile)
	}

	s := &Session{
		subscriptionID: subscriptionID,
		logger:         log,
		clock:          clock.RealClock{}, // Use real system time by default
		creds:          creds,
		newCredential: func() (azcore.TokenCredential, error) {
			return azidentity.NewDefaultAzureCredential(nil)
		},
		newQuerier: func(cred azcore.TokenCredential) (CostQuerier, error) {
			return armcostmanagement.NewQueryClient(cred, nil)
		},
		newCounter: func(subscriptionID string, cred azcore.TokenCredential) (MachineCounter, error) {
			client, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
			if err != nil {
				return nil, err
			}
			return &vmCounter{client: client}, nil
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func unsupportedProfile(name string) *provider.InvalidStateError {
	return &provider.InvalidStateError{
		Reason: fmt.Sprintf("azure does not support named profile %q (use %q or ambient credentials)", name, provider.DefaultProfile),
	}
}

// Name returns the provider type
func (s *Session) Name() provider.ProviderType {
	return provider.ProviderAzure
}

// SetProfileName follows the AWS session rules; only the default profile exists
func (s *Session) SetProfileName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds.IsAmbient() {
		return &provider.InvalidStateError{Reason: "cannot set profile name when using ambient credentials"}
	}
	if s.handle != nil {
		return &provider.InvalidStateError{Reason: "cannot set profile name after the session handle was created"}
	}
	if name != "" && name != provider.DefaultProfile {
		return unsupportedProfile(name)
	}

	s.creds = provider.NamedProfile(name)
	return nil
}

// credential returns the memoized token credential, creating it on first call
func (s *Session) credential() (azcore.TokenCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return s.handle, nil
	}

	cred, err := s.newCredential()
	if err != nil {
		return nil, upstream("identity", "NewDefaultAzureCredential", err)
	}

	s.logger.Debug("Azure credential created",
		"subscription_id", s.subscriptionID,
		"credentials", s.creds.String())

	s.handle = cred
	return cred, nil
}

// MonthlyCost returns month-to-date actual cost and a run-rate forecast for
// the whole month
func (s *Session) MonthlyCost(ctx context.Context) (provider.Cost, error) {
	cred, err := s.credential()
	if err != nil {
		return provider.Cost{}, err
	}

	client, err := s.newQuerier(cred)
	if err != nil {
		return provider.Cost{}, upstream("costmanagement", "NewQueryClient", err)
	}

	scope := fmt.Sprintf("/subscriptions/%s", s.subscriptionID)
	queryType := armcostmanagement.ExportTypeActualCost
	timeframe := armcostmanagement.TimeframeTypeMonthToDate
	granularity := armcostmanagement.GranularityTypeDaily

	queryDef := armcostmanagement.QueryDefinition{
		Type:      &queryType,
		Timeframe: &timeframe,
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {
					Name:     stringPtr("Cost"),
					Function: functionPtr(armcostmanagement.FunctionTypeSum),
				},
			},
		},
	}

	resp, err := client.Usage(ctx, scope, queryDef, nil)
	if err != nil {
		return provider.Cost{}, upstream("costmanagement", "Usage", err)
	}

	actual, currency, err := sumCosts(resp.QueryResult)
	if err != nil {
		return provider.Cost{}, upstream("costmanagement", "Usage", err)
	}

	now := s.clock.Now().UTC()
	forecast := projectMonth(actual, now)

	s.logger.Debug("Month-to-date cost retrieved",
		"subscription_id", s.subscriptionID,
		"actual", actual,
		"forecast", forecast,
		"currency", currency)

	return provider.Cost{
		Actual:   actual,
		Forecast: forecast,
		Currency: currency,
	}, nil
}

// ServerCount returns the number of virtual machines in the subscription.
// Deleted VMs are not listed, so every listed VM counts.
func (s *Session) ServerCount(ctx context.Context) (int, error) {
	cred, err := s.credential()
	if err != nil {
		return 0, err
	}

	counter, err := s.newCounter(s.subscriptionID, cred)
	if err != nil {
		return 0, upstream("compute", "NewVirtualMachinesClient", err)
	}

	n, err := counter.CountMachines(ctx)
	if err != nil {
		return 0, upstream("compute", "ListAll", err)
	}
	return n, nil
}

// vmCounter pages through all virtual machines of a subscription
type vmCounter struct {
	client *armcompute.VirtualMachinesClient
}

func (c *vmCounter) CountMachines(ctx context.Context) (int, error) {
	n := 0
	pager := c.client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		n += len(page.Value)
	}
	return n, nil
}

// buildColumnMap creates a map of column names to their indices
func buildColumnMap(columns []*armcostmanagement.QueryColumn) map[string]int {
	columnMap := make(map[string]int)
	for i, col := range columns {
		if col.Name != nil {
			columnMap[*col.Name] = i
		}
	}
	return columnMap
}

// parseCost extracts and converts cost value to float64
func parseCost(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0.0
	}
}

// sumCosts adds up the cost column of every row
func sumCosts(result armcostmanagement.QueryResult) (float64, string, error) {
	if result.Properties == nil {
		return 0, "", errors.New("query result has no properties")
	}

	rows := result.Properties.Rows
	if len(rows) == 0 {
		// nothing billed yet this month
		return 0, "", nil
	}

	columnMap := buildColumnMap(result.Properties.Columns)
	costIdx := -1
	for _, name := range costColumns {
		if idx, ok := columnMap[name]; ok {
			costIdx = idx
			break
		}
	}
	if costIdx < 0 {
		return 0, "", errors.New("query result has no cost column")
	}
	currencyIdx, hasCurrency := columnMap["Currency"]

	var (
		total    float64
		currency string
	)
	for _, row := range rows {
		if len(row) <= costIdx {
			continue
		}
		total += parseCost(row[costIdx])
		if hasCurrency && currency == "" && len(row) > currencyIdx {
			if c, ok := row[currencyIdx].(string); ok {
				currency = c
			}
		}
	}

	return total, currency, nil
}

// projectMonth extrapolates month-to-date spend linearly to the month's end
func projectMonth(actual float64, now time.Time) float64 {
	elapsed := now.Day()
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return actual / float64(elapsed) * float64(daysInMonth)
}

func upstream(service, operation string, err error) *provider.UpstreamError {
	e := &provider.UpstreamError{
		Provider:  provider.ProviderAzure,
		Service:   service,
		Operation: operation,
		Cause:     err,
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		e.Code = respErr.ErrorCode
	}
	return e
}

// Helper functions
func stringPtr(s string) *string {
	return &s
}

func functionPtr(f armcostmanagement.FunctionType) *armcostmanagement.FunctionType {
	return &f
}
