package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zgpcy/cost-report/internal/provider"
)

var (
	testTime = time.Date(2024, time.March, 7, 9, 30, 0, 0, time.UTC)
	testSnap = provider.Snapshot{ActualSpend: 12.5, ForecastSpend: 20.0, Currency: "USD", InstanceCount: 4}
)

func TestSnapshotCollector_Metrics(t *testing.T) {
	c := NewSnapshotCollector(provider.ProviderAWS, testSnap, testTime)

	expected := `
# HELP cost_report_actual_spend Month-to-date actual spend of the account
# TYPE cost_report_actual_spend gauge
cost_report_actual_spend{currency="USD",provider="aws"} 12.5
# HELP cost_report_forecast_spend Forecast spend of the account for the whole month
# TYPE cost_report_forecast_spend gauge
cost_report_forecast_spend{currency="USD",provider="aws"} 20
# HELP cost_report_instances Number of compute instances that are not terminated
# TYPE cost_report_instances gauge
cost_report_instances{provider="aws"} 4
# HELP cost_report_last_success_timestamp_seconds Unix timestamp of the last successful report
# TYPE cost_report_last_success_timestamp_seconds gauge
cost_report_last_success_timestamp_seconds{provider="aws"} 1709803800
`

	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"cost_report_actual_spend",
		"cost_report_forecast_spend",
		"cost_report_instances",
		"cost_report_last_success_timestamp_seconds",
	)
	if err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestSnapshotCollector_Count(t *testing.T) {
	c := NewSnapshotCollector(provider.ProviderAzure, testSnap, testTime)

	// four snapshot gauges plus build info
	if got := testutil.CollectAndCount(c); got != 5 {
		t.Errorf("CollectAndCount() = %d, want 5", got)
	}
	if got := testutil.CollectAndCount(c, "cost_report_build_info"); got != 1 {
		t.Errorf("build info series = %d, want 1", got)
	}
}

func TestSnapshotCollector_Lint(t *testing.T) {
	c := NewSnapshotCollector(provider.ProviderAWS, testSnap, testTime)

	problems, err := testutil.CollectAndLint(c)
	if err != nil {
		t.Fatalf("CollectAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Errorf("lint: %s: %s", p.Metric, p.Text)
	}
}
