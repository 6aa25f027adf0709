// Package provider defines the cloud provider abstraction layer.
//
// A UsageProvider is a session bound to one cloud account. It reports the
// current period's spend and the number of compute instances, and hides how
// each cloud authenticates and which APIs it calls:
//
//	type UsageProvider interface {
//		MonthlyCost(ctx context.Context) (Cost, error)
//		ServerCount(ctx context.Context) (int, error)
//		SetProfileName(name string) error
//		Name() ProviderType
//	}
//
// Credentials is a tagged selection, built with Ambient() or
// NamedProfile(name). Exactly one is active per session, fixed when the
// session is constructed.
//
// Errors shared by all providers:
//   - UpstreamError: a billing or inventory call failed or returned nothing usable
//   - InvalidStateError: a profile change the session cannot honor
package provider
