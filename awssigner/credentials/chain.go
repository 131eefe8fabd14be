package credentials

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultChainProvider delegates to the AWS SDK default credential search
// order: environment variables, shared credential files, then container or
// instance identity. The order is the SDK's contract, not reimplemented
// here.
type DefaultChainProvider struct {
	region string

	mu       sync.Mutex
	provider aws.CredentialsProvider
}

func NewDefaultChain(region string) *DefaultChainProvider {
	return &DefaultChainProvider{region: region}
}

func (p *DefaultChainProvider) Retrieve(ctx context.Context) (Credentials, error) {
	provider, err := p.chain(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: loading default chain: %v", ErrUnavailable, err)
	}

	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: default chain exhausted: %v", ErrUnavailable, err)
	}

	return Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		Source:          creds.Source,
		CanExpire:       creds.CanExpire,
		Expires:         creds.Expires,
	}, nil
}

// chain loads the SDK config once. The returned provider is the SDK's own
// credentials cache, so repeated Retrieve calls do not re-run the chain.
func (p *DefaultChainProvider) chain(ctx context.Context) (aws.CredentialsProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.provider != nil {
		return p.provider, nil
	}

	var opts []func(*config.LoadOptions) error
	if p.region != "" {
		opts = append(opts, config.WithRegion(p.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.provider = cfg.Credentials
	return p.provider, nil
}
