package azure

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/zgpcy/cost-report/internal/clock"
	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/provider"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

type mockQuerier struct {
	result armcostmanagement.QueryResult
	err    error
	scope  string
	def    armcostmanagement.QueryDefinition
}

func (m *mockQuerier) Usage(ctx context.Context, scope string, parameters armcostmanagement.QueryDefinition, options *armcostmanagement.QueryClientUsageOptions) (armcostmanagement.QueryClientUsageResponse, error) {
	m.scope = scope
	m.def = parameters
	if m.err != nil {
		return armcostmanagement.QueryClientUsageResponse{}, m.err
	}
	return armcostmanagement.QueryClientUsageResponse{QueryResult: m.result}, nil
}

type mockCounter struct {
	n   int
	err error
}

func (m *mockCounter) CountMachines(ctx context.Context) (int, error) {
	return m.n, m.err
}

func responseError(code string) *azcore.ResponseError {
	req := httptest.NewRequest(http.MethodPost, "https://management.azure.com/subscriptions/sub-123/providers/Microsoft.CostManagement/query", nil)
	return &azcore.ResponseError{
		ErrorCode:   code,
		StatusCode:  http.StatusForbidden,
		RawResponse: &http.Response{StatusCode: http.StatusForbidden, Request: req},
	}
}

func costResult(rows ...[]interface{}) armcostmanagement.QueryResult {
	return armcostmanagement.QueryResult{
		Properties: &armcostmanagement.QueryProperties{
			Columns: []*armcostmanagement.QueryColumn{
				{Name: stringPtr("Cost"), Type: stringPtr("Number")},
				{Name: stringPtr("UsageDate"), Type: stringPtr("Number")},
				{Name: stringPtr("Currency"), Type: stringPtr("String")},
			},
			Rows: rows,
		},
	}
}

// march10 is the 10th day of a 31-day month
var march10 = clock.Fixed(time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC))

func newTestSession(t *testing.T, q CostQuerier, c MachineCounter) *Session {
	t.Helper()
	s, err := NewSession("sub-123", provider.Ambient(), logger.Discard(),
		WithHandle(fakeCredential{}),
		WithClock(march10),
		WithCostQuerier(func(azcore.TokenCredential) (CostQuerier, error) { return q, nil }),
		WithMachineCounter(func(string, azcore.TokenCredential) (MachineCounter, error) { return c, nil }),
	)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

func TestNewSession(t *testing.T) {
	tests := []struct {
		name           string
		subscriptionID string
		creds          provider.Credentials
		wantErr        bool
		wantState      bool
	}{
		{"ambient", "sub-123", provider.Ambient(), false, false},
		{"default profile", "sub-123", provider.NamedProfile(provider.DefaultProfile), false, false},
		{"empty profile means default", "sub-123", provider.NamedProfile(""), false, false},
		{"named profile", "sub-123", provider.NamedProfile("billing"), true, true},
		{"no selection", "sub-123", provider.Credentials{}, true, true},
		{"missing subscription", "", provider.Ambient(), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(tt.subscriptionID, tt.creds, logger.Discard())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSession() error = %v, wantErr %v", err, tt.wantErr)
			}
			var stateErr *provider.InvalidStateError
			if errors.As(err, &stateErr) != tt.wantState {
				t.Errorf("InvalidStateError = %v, want %v", errors.As(err, &stateErr), tt.wantState)
			}
			if err == nil && s.Name() != provider.ProviderAzure {
				t.Errorf("Name() = %v, want %v", s.Name(), provider.ProviderAzure)
			}
		})
	}
}

func TestSetProfileName(t *testing.T) {
	t.Run("ambient session", func(t *testing.T) {
		s, _ := NewSession("sub-123", provider.Ambient(), logger.Discard())
		var stateErr *provider.InvalidStateError
		if err := s.SetProfileName("default"); !errors.As(err, &stateErr) {
			t.Errorf("SetProfileName() error = %v, want InvalidStateError", err)
		}
	})

	t.Run("default profile accepted", func(t *testing.T) {
		s, _ := NewSession("sub-123", provider.NamedProfile(""), logger.Discard())
		if err := s.SetProfileName(provider.DefaultProfile); err != nil {
			t.Errorf("SetProfileName() error = %v", err)
		}
	})

	t.Run("other profile rejected", func(t *testing.T) {
		s, _ := NewSession("sub-123", provider.NamedProfile(""), logger.Discard())
		var stateErr *provider.InvalidStateError
		if err := s.SetProfileName("billing"); !errors.As(err, &stateErr) {
			t.Errorf("SetProfileName() error = %v, want InvalidStateError", err)
		}
	})

	t.Run("after handle created", func(t *testing.T) {
		s, _ := NewSession("sub-123", provider.NamedProfile(""), logger.Discard(), WithHandle(fakeCredential{}))
		var stateErr *provider.InvalidStateError
		if err := s.SetProfileName(provider.DefaultProfile); !errors.As(err, &stateErr) {
			t.Errorf("SetProfileName() error = %v, want InvalidStateError", err)
		}
	})
}

func TestCredentialMemoized(t *testing.T) {
	s, _ := NewSession("sub-123", provider.Ambient(), logger.Discard(),
		WithClock(march10),
		WithCostQuerier(func(azcore.TokenCredential) (CostQuerier, error) {
			return &mockQuerier{result: costResult()}, nil
		}),
		WithMachineCounter(func(string, azcore.TokenCredential) (MachineCounter, error) {
			return &mockCounter{n: 1}, nil
		}),
	)
	calls := 0
	s.newCredential = func() (azcore.TokenCredential, error) {
		calls++
		return fakeCredential{}, nil
	}

	ctx := context.Background()
	if _, err := s.MonthlyCost(ctx); err != nil {
		t.Fatalf("MonthlyCost() error = %v", err)
	}
	if _, err := s.ServerCount(ctx); err != nil {
		t.Fatalf("ServerCount() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("credential created %d times, want 1", calls)
	}
}

func TestCredentialFailure(t *testing.T) {
	s, _ := NewSession("sub-123", provider.Ambient(), logger.Discard())
	s.newCredential = func() (azcore.TokenCredential, error) {
		return nil, errors.New("no identity available")
	}

	_, err := s.MonthlyCost(context.Background())
	var upErr *provider.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("MonthlyCost() error = %v, want UpstreamError", err)
	}
	if upErr.Service != "identity" {
		t.Errorf("Service = %q, want identity", upErr.Service)
	}
}

func TestMonthlyCost(t *testing.T) {
	q := &mockQuerier{result: costResult(
		[]interface{}{40.0, 20260301, "EUR"},
		[]interface{}{35, 20260302, "EUR"},
		[]interface{}{int64(25), 20260303, "EUR"},
	)}
	s := newTestSession(t, q, &mockCounter{})

	cost, err := s.MonthlyCost(context.Background())
	if err != nil {
		t.Fatalf("MonthlyCost() error = %v", err)
	}
	if cost.Actual != 100 {
		t.Errorf("Actual = %v, want 100", cost.Actual)
	}
	// 100 over 10 days, projected across 31
	if cost.Forecast != 310 {
		t.Errorf("Forecast = %v, want 310", cost.Forecast)
	}
	if cost.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", cost.Currency)
	}

	if q.scope != "/subscriptions/sub-123" {
		t.Errorf("scope = %q", q.scope)
	}
	if q.def.Timeframe == nil || *q.def.Timeframe != armcostmanagement.TimeframeTypeMonthToDate {
		t.Errorf("Timeframe = %v, want MonthToDate", q.def.Timeframe)
	}
}

func TestMonthlyCost_NoRows(t *testing.T) {
	s := newTestSession(t, &mockQuerier{result: costResult()}, &mockCounter{})

	cost, err := s.MonthlyCost(context.Background())
	if err != nil {
		t.Fatalf("MonthlyCost() error = %v", err)
	}
	if cost.Actual != 0 || cost.Forecast != 0 {
		t.Errorf("cost = %+v, want zero", cost)
	}
}

func TestMonthlyCost_Errors(t *testing.T) {
	tests := []struct {
		name string
		q    *mockQuerier
	}{
		{"api error", &mockQuerier{err: responseError("AuthorizationFailed")}},
		{"nil properties", &mockQuerier{result: armcostmanagement.QueryResult{}}},
		{"no cost column", &mockQuerier{result: armcostmanagement.QueryResult{
			Properties: &armcostmanagement.QueryProperties{
				Columns: []*armcostmanagement.QueryColumn{{Name: stringPtr("UsageDate")}},
				Rows:    [][]interface{}{{20260301}},
			},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, tt.q, &mockCounter{})
			_, err := s.MonthlyCost(context.Background())
			var upErr *provider.UpstreamError
			if !errors.As(err, &upErr) {
				t.Fatalf("MonthlyCost() error = %v, want UpstreamError", err)
			}
			if upErr.Provider != provider.ProviderAzure {
				t.Errorf("Provider = %v, want azure", upErr.Provider)
			}
		})
	}
}

func TestMonthlyCost_ErrorCode(t *testing.T) {
	q := &mockQuerier{err: responseError("AuthorizationFailed")}
	s := newTestSession(t, q, &mockCounter{})

	_, err := s.MonthlyCost(context.Background())
	var upErr *provider.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("MonthlyCost() error = %v, want UpstreamError", err)
	}
	if upErr.Code != "AuthorizationFailed" {
		t.Errorf("Code = %q, want AuthorizationFailed", upErr.Code)
	}
}

// TestCostParsing tests various cost value types
func TestCostParsing(t *testing.T) {
	tests := []struct {
		name         string
		costValue    interface{}
		expectedCost float64
	}{
		{"float64 cost", 12.34, 12.34},
		{"int cost", 10, 10.0},
		{"int64 cost", int64(25), 25.0},
		{"zero cost", 0, 0.0},
		{"string cost", "invalid", 0.0},
		{"nil cost", nil, 0.0},
		{"boolean cost", true, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseCost(tt.costValue); got != tt.expectedCost {
				t.Errorf("parseCost(%v) = %v, want %v", tt.costValue, got, tt.expectedCost)
			}
		})
	}
}

func TestSumCosts_AlternateColumn(t *testing.T) {
	result := armcostmanagement.QueryResult{
		Properties: &armcostmanagement.QueryProperties{
			Columns: []*armcostmanagement.QueryColumn{
				{Name: stringPtr("UsageDate")},
				{Name: stringPtr("PreTaxCost")},
			},
			Rows: [][]interface{}{
				{20260301, 1.5},
				{20260302, 2.5},
				{20260303}, // short row is skipped
			},
		},
	}

	total, currency, err := sumCosts(result)
	if err != nil {
		t.Fatalf("sumCosts() error = %v", err)
	}
	if total != 4 {
		t.Errorf("total = %v, want 4", total)
	}
	if currency != "" {
		t.Errorf("currency = %q, want empty", currency)
	}
}

func TestProjectMonth(t *testing.T) {
	tests := []struct {
		name   string
		actual float64
		now    time.Time
		want   float64
	}{
		{"first day", 10, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), 300},
		{"last day", 280, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), 280},
		{"leap february", 29, time.Date(2028, time.February, 1, 0, 0, 0, 0, time.UTC), 841},
		{"december", 62, time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC), 62},
		{"nothing spent", 0, time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := projectMonth(tt.actual, tt.now); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("projectMonth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServerCount(t *testing.T) {
	s := newTestSession(t, &mockQuerier{}, &mockCounter{n: 7})

	n, err := s.ServerCount(context.Background())
	if err != nil {
		t.Fatalf("ServerCount() error = %v", err)
	}
	if n != 7 {
		t.Errorf("ServerCount() = %d, want 7", n)
	}
}

func TestServerCount_Error(t *testing.T) {
	s := newTestSession(t, &mockQuerier{}, &mockCounter{err: errors.New("throttled")})

	_, err := s.ServerCount(context.Background())
	var upErr *provider.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("ServerCount() error = %v, want UpstreamError", err)
	}
	if upErr.Service != "compute" || upErr.Operation != "ListAll" {
		t.Errorf("UpstreamError = %+v", upErr)
	}
}
