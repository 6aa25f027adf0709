// Package metrics publishes the report snapshot to a Prometheus Pushgateway.
//
// A one-shot run has nothing for Prometheus to scrape, so the snapshot is
// pushed instead. Every push replaces the group job=<job>, account_id=<id>.
//
// Pushed metrics:
//   - cost_report_actual_spend: month-to-date spend, labels provider and currency
//   - cost_report_forecast_spend: month forecast, labels provider and currency
//   - cost_report_instances: live compute instances, label provider
//   - cost_report_last_success_timestamp_seconds: time of the push
//   - cost_report_build_info: build version information
package metrics
