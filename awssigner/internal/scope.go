package awssigner

import "path"

// BuildCredentialScope builds the date/region/service/terminator tuple that
// scopes a derived signing key, as used in the Credential part of the
// Authorization header.
func BuildCredentialScope(signingTime SigningTime, region, service string) string {
	return path.Join(
		signingTime.ShortTimeFormat(),
		region,
		service,
		"aws4_request")
}
