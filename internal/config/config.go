package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultFileName = "config.yaml"
	DefaultEnvFile  = ".env"
	DefaultProvider = "aws"
	DefaultLogLevel = "info"
	DefaultJob      = "cost_report"
)

// Supported cloud providers
const (
	ProviderAWS   = "aws"
	ProviderAzure = "azure"
)

// Zulip message destination types
const (
	DestinationStream  = "stream"
	DestinationDirect  = "direct"
	DestinationPrivate = "private" // legacy alias of direct
)

// Cloud holds the account the report is about
type Cloud struct {
	Provider  string         `yaml:"provider"`
	AccountID string         `yaml:"account_id"` // AWS account ID or Azure subscription ID
	Extra     map[string]any `yaml:",inline"`
}

// Notify holds the chat destination and the message template
type Notify struct {
	Site            string         `yaml:"site"`
	Email           string         `yaml:"email"`
	APIKey          string         `yaml:"api_key"`
	DestinationType string         `yaml:"destination_type"`
	Destination     string         `yaml:"destination"`
	Topic           string         `yaml:"topic"`
	MessageTemplate string         `yaml:"message_template"`
	Extra           map[string]any `yaml:",inline"`
}

// Metrics configures the optional Pushgateway push of the run's snapshot
type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Config represents the application configuration
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Cloud    Cloud          `yaml:"cloud"`
	Notify   Notify         `yaml:"notify"`
	Metrics  Metrics        `yaml:"metrics"`
	Extra    map[string]any `yaml:",inline"`
}

// ConfigError reports a missing, malformed or invalid configuration value
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Cause)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.Field, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

func missing(field string) *ConfigError {
	return &ConfigError{Field: field, Cause: errors.New("required value is not set")}
}

// envOverride maps one recognized environment variable onto a config field
type envOverride struct {
	name string
	set  func(cfg *Config, value string)
}

var envOverrides = []envOverride{
	{"AWS_ACCOUNT_ID", func(c *Config, v string) { c.Cloud.AccountID = v }},
	{"ZULIP_SITE", func(c *Config, v string) { c.Notify.Site = v }},
	{"ZULIP_EMAIL", func(c *Config, v string) { c.Notify.Email = v }},
	{"ZULIP_API_KEY", func(c *Config, v string) { c.Notify.APIKey = v }},
	{"ZULIP_TYPE", func(c *Config, v string) { c.Notify.DestinationType = v }},
	{"ZULIP_TO", func(c *Config, v string) { c.Notify.Destination = v }},
	{"ZULIP_TOPIC", func(c *Config, v string) { c.Notify.Topic = v }},
	{"ZULIP_MESSAGE", func(c *Config, v string) { c.Notify.MessageTemplate = v }},
	{"COST_REPORT_PROVIDER", func(c *Config, v string) { c.Cloud.Provider = v }},
	{"COST_REPORT_LOG_LEVEL", func(c *Config, v string) { c.LogLevel = v }},
	{"COST_REPORT_PUSHGATEWAY_URL", func(c *Config, v string) { c.Metrics.PushgatewayURL = v }},
}

// EnvVars lists the recognized environment variables in overlay order
func EnvVars() []string {
	names := make([]string, 0, len(envOverrides))
	for _, o := range envOverrides {
		names = append(names, o.name)
	}
	return names
}

// Option configures a Resolver
type Option func(*Resolver)

// WithEnvFile sets the dotenv file consulted after the process environment.
// An empty path disables the dotenv layer.
func WithEnvFile(path string) Option {
	return func(r *Resolver) {
		r.envFile = path
	}
}

// WithLookupEnv replaces os.LookupEnv, mainly for tests
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) {
		r.lookupEnv = fn
	}
}

// Resolver merges the config file, the dotenv file and the process
// environment into one Config. Precedence: env > dotenv > file > absent.
type Resolver struct {
	path      string
	envFile   string
	lookupEnv func(string) (string, bool)
}

// NewResolver creates a Resolver for the config file at path. By default the
// dotenv file is looked up next to it.
func NewResolver(path string, opts ...Option) *Resolver {
	r := &Resolver{
		path:      path,
		envFile:   filepath.Join(filepath.Dir(path), DefaultEnvFile),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load is shorthand for NewResolver(path).Load()
func Load(path string) (*Config, error) {
	return NewResolver(path).Load()
}

// Path returns the config file path the resolver reads
func (r *Resolver) Path() string {
	return r.path
}

// Load resolves the configuration. A missing file is tolerated; a file that
// exists but cannot be read or parsed is a ConfigError, as is any required
// field left empty after the environment overlay.
func (r *Resolver) Load() (*Config, error) {
	cfg, err := r.loadFile()
	if err != nil {
		return nil, err
	}

	dotenv, err := r.loadEnvFile()
	if err != nil {
		return nil, err
	}

	r.applyEnvOverrides(cfg, dotenv)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (r *Resolver) loadFile() (*Config, error) {
	cfg := &Config{}

	// #nosec G304 -- Config file path is provided by administrator via CLI flag, not user input
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, &ConfigError{Cause: fmt.Errorf("failed to read config file %s: %w", r.path, err)}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Cause: fmt.Errorf("failed to parse config file %s: %w", r.path, err)}
	}

	return cfg, nil
}

func (r *Resolver) loadEnvFile() (map[string]string, error) {
	if r.envFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(r.envFile); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	values, err := godotenv.Read(r.envFile)
	if err != nil {
		return nil, &ConfigError{Cause: fmt.Errorf("failed to parse env file %s: %w", r.envFile, err)}
	}
	return values, nil
}

// applyEnvOverrides runs unconditionally; only set, non-empty values win
func (r *Resolver) applyEnvOverrides(cfg *Config, dotenv map[string]string) {
	for _, o := range envOverrides {
		if val, ok := r.lookupEnv(o.name); ok && val != "" {
			o.set(cfg, val)
			continue
		}
		if val := dotenv[o.name]; val != "" {
			o.set(cfg, val)
		}
	}
}

// applyDefaults sets default values for configuration
func applyDefaults(cfg *Config) {
	if cfg.Cloud.Provider == "" {
		cfg.Cloud.Provider = DefaultProvider
	}
	cfg.Cloud.Provider = strings.ToLower(cfg.Cloud.Provider)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = DefaultJob
	}
}

// validate checks the fields every run consumes. Delivery fields are
// checked by Notify.ValidateDelivery since dry runs never use them.
func validate(cfg *Config) error {
	if cfg.Cloud.AccountID == "" {
		return missing("cloud.account_id")
	}

	switch cfg.Cloud.Provider {
	case ProviderAWS, ProviderAzure:
	default:
		return &ConfigError{
			Field: "cloud.provider",
			Cause: fmt.Errorf("unsupported provider %q (expected %s or %s)", cfg.Cloud.Provider, ProviderAWS, ProviderAzure),
		}
	}

	if cfg.Notify.MessageTemplate == "" {
		return missing("notify.message_template")
	}

	if t := cfg.Notify.DestinationType; t != "" && !validDestinationType(t) {
		return &ConfigError{
			Field: "notify.destination_type",
			Cause: fmt.Errorf("unsupported destination type %q", t),
		}
	}

	return nil
}

func validDestinationType(t string) bool {
	switch t {
	case DestinationStream, DestinationDirect, DestinationPrivate:
		return true
	}
	return false
}

// ValidateDelivery checks the fields needed to send a chat message
func (n *Notify) ValidateDelivery() error {
	required := []struct {
		field string
		value string
	}{
		{"notify.site", n.Site},
		{"notify.email", n.Email},
		{"notify.api_key", n.APIKey},
		{"notify.destination_type", n.DestinationType},
		{"notify.destination", n.Destination},
	}
	for _, r := range required {
		if r.value == "" {
			return missing(r.field)
		}
	}

	if !validDestinationType(n.DestinationType) {
		return &ConfigError{
			Field: "notify.destination_type",
			Cause: fmt.Errorf("unsupported destination type %q", n.DestinationType),
		}
	}

	// Stream messages are filed under a topic; direct messages have none
	if n.DestinationType == DestinationStream && n.Topic == "" {
		return missing("notify.topic")
	}

	return nil
}
