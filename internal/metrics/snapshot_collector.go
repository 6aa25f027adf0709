package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/cost-report/internal/provider"
	"github.com/zgpcy/cost-report/internal/version"
)

// SnapshotCollector implements prometheus.Collector for one usage snapshot
type SnapshotCollector struct {
	providerType provider.ProviderType
	snap         provider.Snapshot
	collectedAt  time.Time

	// Metrics
	actualSpendMetric   *prometheus.Desc
	forecastSpendMetric *prometheus.Desc
	instancesMetric     *prometheus.Desc
	lastSuccessMetric   *prometheus.Desc
	buildInfo           *prometheus.GaugeVec // Build version information
}

// NewSnapshotCollector creates a collector exposing snap. The account id is
// not a metric label: it is attached as a Pushgateway grouping key.
func NewSnapshotCollector(providerType provider.ProviderType, snap provider.Snapshot, collectedAt time.Time) *SnapshotCollector {
	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cost_report_build_info",
			Help: "Build version information",
		},
		[]string{"version", "git_commit", "build_date", "go_version"},
	)

	versionInfo := version.Info()
	buildInfo.With(prometheus.Labels{
		"version":    versionInfo["version"],
		"git_commit": versionInfo["git_commit"],
		"build_date": versionInfo["build_date"],
		"go_version": versionInfo["go_version"],
	}).Set(1)

	spendLabels := []string{"provider", "currency"}

	return &SnapshotCollector{
		providerType: providerType,
		snap:         snap,
		collectedAt:  collectedAt,
		actualSpendMetric: prometheus.NewDesc(
			"cost_report_actual_spend",
			"Month-to-date actual spend of the account",
			spendLabels,
			nil,
		),
		forecastSpendMetric: prometheus.NewDesc(
			"cost_report_forecast_spend",
			"Forecast spend of the account for the whole month",
			spendLabels,
			nil,
		),
		instancesMetric: prometheus.NewDesc(
			"cost_report_instances",
			"Number of compute instances that are not terminated",
			[]string{"provider"},
			nil,
		),
		lastSuccessMetric: prometheus.NewDesc(
			"cost_report_last_success_timestamp_seconds",
			"Unix timestamp of the last successful report",
			[]string{"provider"},
			nil,
		),
		buildInfo: buildInfo,
	}
}

// Describe implements prometheus.Collector
func (c *SnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.actualSpendMetric
	ch <- c.forecastSpendMetric
	ch <- c.instancesMetric
	ch <- c.lastSuccessMetric
	c.buildInfo.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	name := string(c.providerType)

	ch <- prometheus.MustNewConstMetric(
		c.actualSpendMetric,
		prometheus.GaugeValue,
		c.snap.ActualSpend,
		name, c.snap.Currency,
	)
	ch <- prometheus.MustNewConstMetric(
		c.forecastSpendMetric,
		prometheus.GaugeValue,
		c.snap.ForecastSpend,
		name, c.snap.Currency,
	)
	ch <- prometheus.MustNewConstMetric(
		c.instancesMetric,
		prometheus.GaugeValue,
		float64(c.snap.InstanceCount),
		name,
	)
	ch <- prometheus.MustNewConstMetric(
		c.lastSuccessMetric,
		prometheus.GaugeValue,
		float64(c.collectedAt.Unix()),
		name,
	)
	c.buildInfo.Collect(ch)
}
