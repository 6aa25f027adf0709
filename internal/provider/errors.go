package provider

import "fmt"

// UpstreamError represents a failed or empty call to a billing or inventory API
type UpstreamError struct {
	Provider  ProviderType // aws, azure
	Service   string       // budgets, ec2, costmanagement, compute
	Operation string       // DescribeBudgets, DescribeInstances, ...
	Code      string       // API error code when the SDK exposes one
	Cause     error
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s %s failed (%s): %v", e.Provider, e.Service, e.Operation, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s %s %s failed: %v", e.Provider, e.Service, e.Operation, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// InvalidStateError reports a contradictory credential selection
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid session state: %s", e.Reason)
}
