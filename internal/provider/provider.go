package provider

import (
	"context"
)

// ProviderType represents a cloud provider
type ProviderType string

// Supported cloud providers
const (
	ProviderAWS   ProviderType = "aws"
	ProviderAzure ProviderType = "azure"
)

// UsageProvider is a session bound to one cloud account. Implementations
// create their credential handle lazily and at most once.
type UsageProvider interface {
	// MonthlyCost returns the current period's actual and forecast spend
	MonthlyCost(ctx context.Context) (Cost, error)

	// ServerCount returns the number of compute instances that still exist
	ServerCount(ctx context.Context) (int, error)

	// SetProfileName switches the named profile used for the session handle.
	// It fails with InvalidStateError for ambient sessions and once the
	// handle has been created.
	SetProfileName(name string) error

	// Name returns the provider name (aws, azure)
	Name() ProviderType
}

// Cost is the spend of the current billing period
type Cost struct {
	Actual   float64
	Forecast float64
	Currency string // USD, EUR, ... as reported upstream; may be empty
}

// Snapshot is the point-in-time usage the report is rendered from
type Snapshot struct {
	ActualSpend   float64
	ForecastSpend float64
	Currency      string
	InstanceCount int
}
