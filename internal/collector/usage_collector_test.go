package collector

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/provider"
)

// mockCloudProvider is a mock implementation of the cloud provider for testing
type mockCloudProvider struct {
	cost     provider.Cost
	costErr  error
	servers  int
	countErr error
	calls    []string
}

func (m *mockCloudProvider) MonthlyCost(ctx context.Context) (provider.Cost, error) {
	m.calls = append(m.calls, "MonthlyCost")
	return m.cost, m.costErr
}

func (m *mockCloudProvider) ServerCount(ctx context.Context) (int, error) {
	m.calls = append(m.calls, "ServerCount")
	return m.servers, m.countErr
}

func (m *mockCloudProvider) SetProfileName(name string) error {
	return nil
}

func (m *mockCloudProvider) Name() provider.ProviderType {
	return provider.ProviderAWS
}

func TestCollect(t *testing.T) {
	mock := &mockCloudProvider{
		cost:    provider.Cost{Actual: 12.5, Forecast: 20.0, Currency: "USD"},
		servers: 4,
	}

	snap, err := NewUsageCollector(mock, logger.Discard()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := provider.Snapshot{ActualSpend: 12.5, ForecastSpend: 20.0, Currency: "USD", InstanceCount: 4}
	if snap != want {
		t.Errorf("Collect() = %+v, want %+v", snap, want)
	}
	if !reflect.DeepEqual(mock.calls, []string{"MonthlyCost", "ServerCount"}) {
		t.Errorf("calls = %v, want MonthlyCost then ServerCount", mock.calls)
	}
}

func TestCollect_Errors(t *testing.T) {
	costErr := &provider.UpstreamError{Provider: provider.ProviderAWS, Service: "budgets", Operation: "DescribeBudgets", Cause: errors.New("no budgets")}
	countErr := &provider.UpstreamError{Provider: provider.ProviderAWS, Service: "ec2", Operation: "DescribeInstances", Cause: errors.New("denied")}

	tests := []struct {
		name      string
		mock      *mockCloudProvider
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "cost fails",
			mock:      &mockCloudProvider{costErr: costErr, servers: 4},
			wantErr:   costErr,
			wantCalls: []string{"MonthlyCost"},
		},
		{
			name:      "count fails",
			mock:      &mockCloudProvider{countErr: countErr},
			wantErr:   countErr,
			wantCalls: []string{"MonthlyCost", "ServerCount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := NewUsageCollector(tt.mock, logger.Discard()).Collect(context.Background())
			if err != tt.wantErr {
				t.Errorf("Collect() error = %v, want %v unwrapped", err, tt.wantErr)
			}
			if snap != (provider.Snapshot{}) {
				t.Errorf("Collect() snapshot = %+v, want zero", snap)
			}
			if !reflect.DeepEqual(tt.mock.calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", tt.mock.calls, tt.wantCalls)
			}
		})
	}
}
