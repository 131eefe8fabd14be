package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	log "github.com/sirupsen/logrus"
)

const (
	// ref. https://docs.aws.amazon.com/AWSEC2/latest/UserGuide/configuring-instance-metadata-service.html
	defaultMetadataEndpoint = "http://169.254.169.254"

	metadataTokenPath       = "/latest/api/token"
	metadataCredentialsPath = "/latest/meta-data/iam/security-credentials/"
	metadataRegionPath      = "/latest/meta-data/placement/region"

	metadataTokenTTLHeader = "X-aws-ec2-metadata-token-ttl-seconds"
	metadataTokenHeader    = "X-aws-ec2-metadata-token"
	metadataTokenTTL       = "21600"

	// refreshMargin is how long before expiry cached credentials are
	// considered stale and a refresh is attempted.
	refreshMargin = 5 * time.Minute
)

// InstanceMetadataProvider fetches temporary role credentials from the EC2
// instance metadata service. Only the token based IMDSv2 protocol is used,
// the provider never falls back to tokenless v1 requests.
//
// Resolved credentials are kept in an atomically swapped snapshot that is
// safe for concurrent readers. With async refresh enabled, a request
// arriving while the snapshot nears expiry keeps using the last known valid
// credentials and the refresh proceeds in the background; synchronous
// resolution only happens when no valid snapshot exists.
type InstanceMetadataProvider struct {
	endpoint     string
	client       *http.Client
	maxTries     uint
	asyncRefresh bool

	mu         sync.Mutex // serializes synchronous refreshes
	snapshot   atomic.Pointer[Credentials]
	refreshing atomic.Bool
}

// MetadataOption configures an InstanceMetadataProvider.
type MetadataOption func(*InstanceMetadataProvider)

// WithEndpoint overrides the metadata service endpoint.
func WithEndpoint(endpoint string) MetadataOption {
	return func(p *InstanceMetadataProvider) {
		p.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithHTTPClient overrides the HTTP client used for metadata calls.
func WithHTTPClient(client *http.Client) MetadataOption {
	return func(p *InstanceMetadataProvider) {
		p.client = client
	}
}

// WithMaxTries bounds the number of attempts per credential fetch.
func WithMaxTries(n uint) MetadataOption {
	return func(p *InstanceMetadataProvider) {
		if n > 0 {
			p.maxTries = n
		}
	}
}

func NewInstanceMetadata(asyncRefresh bool, opts ...MetadataOption) *InstanceMetadataProvider {
	p := &InstanceMetadataProvider{
		endpoint:     defaultMetadataEndpoint,
		client:       &http.Client{Timeout: 5 * time.Second},
		maxTries:     3,
		asyncRefresh: asyncRefresh,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *InstanceMetadataProvider) Retrieve(ctx context.Context) (Credentials, error) {
	now := time.Now()
	if c := p.snapshot.Load(); c != nil {
		if !c.expiringSoon(now) {
			return *c, nil
		}
		if p.asyncRefresh && !c.Expired(now) {
			p.refreshInBackground()
			return *c, nil
		}
	}
	return p.refresh(ctx)
}

func (p *InstanceMetadataProvider) refresh(ctx context.Context) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// another caller may have refreshed while we waited for the lock
	if c := p.snapshot.Load(); c != nil && !c.expiringSoon(time.Now()) {
		return *c, nil
	}

	creds, err := p.fetch(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: instance metadata: %v", ErrUnavailable, err)
	}
	p.snapshot.Store(&creds)
	return creds, nil
}

func (p *InstanceMetadataProvider) refreshInBackground() {
	if !p.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer p.refreshing.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := p.refresh(ctx); err != nil {
			log.Errorf("Background refresh of instance metadata credentials failed: %v.", err)
		}
	}()
}

func (p *InstanceMetadataProvider) fetch(ctx context.Context) (Credentials, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond

	return backoff.Retry(ctx, func() (Credentials, error) {
		return p.fetchOnce(ctx)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(p.maxTries))
}

// metadataPayload is the role credentials document served by the metadata
// service.
// ref. https://docs.aws.amazon.com/AWSEC2/latest/UserGuide/iam-roles-for-amazon-ec2.html
type metadataPayload struct {
	Code            string
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string
	Token           string
	Expiration      time.Time
}

func (p *InstanceMetadataProvider) fetchOnce(ctx context.Context) (Credentials, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("requesting metadata token: %w", err)
	}

	role, err := p.get(ctx, metadataCredentialsPath, token)
	if err != nil {
		return Credentials{}, fmt.Errorf("requesting role name: %w", err)
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return Credentials{}, backoff.Permanent(fmt.Errorf("no IAM role associated with this instance"))
	}

	doc, err := p.get(ctx, metadataCredentialsPath+role, token)
	if err != nil {
		return Credentials{}, fmt.Errorf("requesting role credentials: %w", err)
	}

	var payload metadataPayload
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return Credentials{}, fmt.Errorf("parsing role credentials document: %w", err)
	}
	if payload.Code != "" && payload.Code != "Success" {
		return Credentials{}, fmt.Errorf("metadata service query did not succeed: %s", payload.Code)
	}

	creds := Credentials{
		AccessKeyID:     payload.AccessKeyID,
		SecretAccessKey: payload.SecretAccessKey,
		SessionToken:    payload.Token,
		Source:          "InstanceMetadata",
		CanExpire:       true,
		Expires:         payload.Expiration,
	}
	if !creds.HasKeys() {
		return Credentials{}, fmt.Errorf("role credentials document is missing keys")
	}
	return creds, nil
}

// Region asks the metadata service for the instance placement region. Used
// as one step of the region fallback chain, so failures are returned, not
// retried.
func (p *InstanceMetadataProvider) Region(ctx context.Context) (string, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("requesting metadata token: %w", err)
	}
	region, err := p.get(ctx, metadataRegionPath, token)
	if err != nil {
		return "", fmt.Errorf("requesting placement region: %w", err)
	}
	return strings.TrimSpace(region), nil
}

// fetchToken performs the IMDSv2 session token handshake: a PUT with a TTL
// header. The token gates every subsequent metadata read.
func (p *InstanceMetadataProvider) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.endpoint+metadataTokenPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(metadataTokenTTLHeader, metadataTokenTTL)

	return p.do(req)
}

func (p *InstanceMetadataProvider) get(ctx context.Context, path, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+path, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(metadataTokenHeader, token)

	return p.do(req)
}

func (p *InstanceMetadataProvider) do(req *http.Request) (string, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return string(body), nil
}
