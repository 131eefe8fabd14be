package credentials

import (
	"context"
	"errors"
)

// StaticProvider serves a fixed credential set from configuration.
type StaticProvider struct {
	creds Credentials
}

// NewStatic validates eagerly: a missing access key id or secret access key
// is a configuration error, not something to surface on the first request.
func NewStatic(accessKeyID, secretAccessKey, sessionToken string) (*StaticProvider, error) {
	if accessKeyID == "" || secretAccessKey == "" {
		return nil, errors.New("static credentials require both access key id and secret access key")
	}
	return &StaticProvider{
		creds: Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			SessionToken:    sessionToken,
			Source:          "Static",
		},
	}, nil
}

func (p *StaticProvider) Retrieve(context.Context) (Credentials, error) {
	return p.creds, nil
}
