package awssigner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cbsmith/opensearch-connector-for-apache-kafka/awssigner/awssigv4"
	"github.com/cbsmith/opensearch-connector-for-apache-kafka/awssigner/credentials"
	internal "github.com/cbsmith/opensearch-connector-for-apache-kafka/awssigner/internal"
)

// Interceptor signs outbound requests with AWS signature version 4. It is
// safe for concurrent use; region and service name are fixed for its
// lifetime and a fresh signature is computed for every request.
type Interceptor struct {
	provider credentials.Provider
	signer   *awssigv4.Signer
	region   string
	service  string
	now      func() time.Time
}

// New builds an interceptor from validated configuration. Provider
// selection happens once here; configuration problems (static provider
// without keys, unknown provider name) fail now, not on the first request.
func New(cfg Config) (*Interceptor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	service := cfg.ServiceName
	if service == "" {
		service = DefaultServiceName
	}

	var metadataOpts []credentials.MetadataOption
	if cfg.MetadataEndpoint != "" {
		metadataOpts = append(metadataOpts, credentials.WithEndpoint(cfg.MetadataEndpoint))
	}
	imds := credentials.NewInstanceMetadata(!cfg.DisableAsyncRefresh, metadataOpts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	region := credentials.ResolveRegion(ctx, cfg.Region, imds)

	var provider credentials.Provider
	switch cfg.Provider {
	case ProviderStatic:
		p, err := credentials.NewStatic(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		provider = p
	case ProviderInstanceProfile:
		provider = imds
	default:
		provider = credentials.NewDefaultChain(region)
	}

	log.Infof("Configuring AWS request signing for region: %s, service: %s, credentials provider: %s.", region, service, providerName(cfg.Provider))

	return &Interceptor{
		provider: provider,
		signer:   awssigv4.NewSigner(),
		region:   region,
		service:  service,
		now:      time.Now,
	}, nil
}

// Sign mutates the request in place: it resolves credentials, hashes the
// body, strips any pre-existing signing headers and applies freshly computed
// ones. All steps complete before the request may proceed; any failure
// aborts the request.
func (i *Interceptor) Sign(req *http.Request) error {
	creds, err := i.provider.Retrieve(req.Context())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}

	payloadHash, err := hashPayload(req)
	if err != nil {
		return fmt.Errorf("%w: reading request body: %w", ErrSigningFailure, err)
	}

	// Stale signing headers from earlier attempts or callers must not leak
	// into the canonical request.
	req.Header.Del(internal.AuthorizationHeader)
	req.Header.Del(internal.AmzDateKey)
	req.Header.Del(internal.AmzSecurityTokenKey)
	req.Header.Del(internal.AmzContentSHA256Key)

	if err := i.signer.SignHTTP(creds, req, payloadHash, i.service, i.region, i.now()); err != nil {
		return fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}

	log.Debugf("Successfully signed request for service: %s, region: %s.", i.service, i.region)
	return nil
}

// hashPayload reads the request body into memory, restores it, and returns
// the hex encoded sha256 digest. A missing body hashes like an empty one.
func hashPayload(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return internal.EmptyBodySHA256, nil
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return "", err
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

func providerName(p ProviderType) string {
	if p == "" {
		return string(ProviderDefault)
	}
	return string(p)
}
