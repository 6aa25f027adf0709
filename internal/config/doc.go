// Package config provides configuration management for the cost report.
//
// This package handles loading configuration from a YAML file, layering an
// optional dotenv file and the process environment on top of it, applying
// defaults, and validating the result.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. Dotenv file, by default ".env" beside the config file
//  3. YAML configuration file (may be absent)
//  4. Default values (lowest priority)
//
// Only set, non-empty variables override. Supported environment variables:
//   - AWS_ACCOUNT_ID: cloud.account_id
//   - ZULIP_SITE, ZULIP_EMAIL, ZULIP_API_KEY: Zulip server and bot credentials
//   - ZULIP_TYPE: notify.destination_type (stream, direct, private)
//   - ZULIP_TO: notify.destination
//   - ZULIP_TOPIC: notify.topic
//   - ZULIP_MESSAGE: notify.message_template
//   - COST_REPORT_PROVIDER: cloud.provider (aws, azure)
//   - COST_REPORT_LOG_LEVEL: log_level (debug, info, warn, error)
//   - COST_REPORT_PUSHGATEWAY_URL: metrics.pushgateway_url
//
// Keys the report does not know about are kept in the Extra maps so the file
// can carry settings for other tools.
//
// Example configuration file (config.yaml):
//
//	log_level: info
//	cloud:
//	  provider: aws
//	  account_id: "123456789012"
//	notify:
//	  site: https://example.zulipchat.com
//	  email: cost-bot@example.zulipchat.com
//	  api_key: xxxxxxxx
//	  destination_type: stream
//	  destination: ops
//	  topic: aws cost
//	  message_template: "{month}/{day}: ${cost:.2f} (forecast ${forecast:.2f}), {nserver} servers"
//
// Example usage:
//
//	cfg, err := config.NewResolver("/opt/cost-report/config.yaml").Load()
//	if err != nil {
//		log.Fatalf("Failed to load config: %v", err)
//	}
package config
