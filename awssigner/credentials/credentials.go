// Package credentials resolves AWS credentials for request signing from one
// of three sources: static configuration, the ambient default provider
// chain, or the EC2 instance metadata service (IMDSv2).
package credentials

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the selected source cannot produce a
// usable credential set. Callers must abort the in-flight request, never
// send it unsigned.
var ErrUnavailable = errors.New("aws credentials unavailable")

// Credentials is the type to represent AWS credentials
type Credentials struct {
	// AccessKeyID is AWS Access key ID
	AccessKeyID string

	// SecretAccessKey is AWS Secret Access Key
	SecretAccessKey string

	// SessionToken is AWS Session Token
	SessionToken string

	// Source of the AWS credentials
	Source string

	// CanExpire states if the AWS credentials can expire or not.
	CanExpire bool

	// Expires is the time when the AWS credentials will expire. Should be ignored if CanExpire is false.
	Expires time.Time
}

// HasKeys reports whether both the access key id and the secret key are set.
func (c Credentials) HasKeys() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Expired reports whether the credentials are no longer valid at the given
// time. Credentials that cannot expire are never expired.
func (c Credentials) Expired(at time.Time) bool {
	return c.CanExpire && !at.Before(c.Expires)
}

func (c Credentials) expiringSoon(at time.Time) bool {
	return c.CanExpire && !at.Add(refreshMargin).Before(c.Expires)
}

// Provider produces a credential set. Implementations may cache per their
// own policy and must be safe for concurrent use.
type Provider interface {
	Retrieve(ctx context.Context) (Credentials, error)
}
