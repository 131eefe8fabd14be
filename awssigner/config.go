package awssigner

import (
	"fmt"
)

// ProviderType selects how credentials are obtained. The set of sources is
// closed and fixed at configuration time.
type ProviderType string

const (
	// ProviderDefault delegates to the AWS default credential search order.
	ProviderDefault ProviderType = "default"

	// ProviderStatic uses the configured access key and secret.
	ProviderStatic ProviderType = "static"

	// ProviderInstanceProfile fetches temporary role credentials from the
	// EC2 instance metadata service (IMDSv2).
	ProviderInstanceProfile ProviderType = "instance_profile"
)

// DefaultServiceName is the signing service name for the managed OpenSearch
// and Elasticsearch endpoints.
const DefaultServiceName = "es"

// Config is the validated AWS signing configuration handed over by the
// connector's configuration layer.
type Config struct {
	// Region the requests are signed for. When empty the region is resolved
	// from the environment, the instance metadata service, or falls back to
	// credentials.DefaultRegion.
	Region string

	// Provider selects the credential source. Empty means ProviderDefault.
	Provider ProviderType

	// AccessKeyID and SecretAccessKey are required with ProviderStatic.
	AccessKeyID     string
	SecretAccessKey string

	// SessionToken marks the static credentials as temporary. Optional.
	SessionToken string

	// ServiceName used in the credential scope. Empty means
	// DefaultServiceName.
	ServiceName string

	// DisableAsyncRefresh turns off background refresh of instance profile
	// credentials; resolution then happens synchronously on the request
	// path when the cached credentials near expiry.
	DisableAsyncRefresh bool

	// MetadataEndpoint overrides the instance metadata service endpoint.
	// Used by tests.
	MetadataEndpoint string
}

// Enabled reports whether AWS signing should be configured at all: an
// explicit region, explicit credentials, or the instance profile provider
// each switch it on.
func (c Config) Enabled() bool {
	return c.Region != "" || c.AccessKeyID != "" || c.Provider == ProviderInstanceProfile
}

func (c Config) validate() error {
	switch c.Provider {
	case "", ProviderDefault, ProviderInstanceProfile:
	case ProviderStatic:
		if c.AccessKeyID == "" || c.SecretAccessKey == "" {
			return fmt.Errorf("%w: access key id and secret access key are required with the static credentials provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown credentials provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}
