package awssigner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbsmith/opensearch-connector-for-apache-kafka/awssigner/awssigv4"
	"github.com/cbsmith/opensearch-connector-for-apache-kafka/awssigner/credentials"
)

func newStaticInterceptor(t *testing.T) *Interceptor {
	t.Helper()
	interceptor, err := New(Config{
		Region:          "us-east-1",
		Provider:        ProviderStatic,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)
	return interceptor
}

func TestSignGetRequest(t *testing.T) {
	interceptor := newStaticInterceptor(t)

	req, err := http.NewRequest("GET", "https://search-test.us-east-1.es.amazonaws.com/_search", nil)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	require.NoError(t, interceptor.Sign(req))

	authorization := req.Header.Get("Authorization")
	assert.NotEmpty(t, authorization)
	assert.True(t, strings.HasPrefix(authorization, "AWS4-HMAC-SHA256"))
	assert.Contains(t, authorization, "us-east-1/es/aws4_request")
	assert.NotEmpty(t, req.Header.Get("X-Amz-Date"))
}

func TestSignPostRequestWithBody(t *testing.T) {
	interceptor := newStaticInterceptor(t)

	body := `{"query":{"match_all":{}}}`
	req, err := http.NewRequest("POST", "https://search-test.us-east-1.es.amazonaws.com/test-index/_search", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	require.NoError(t, interceptor.Sign(req))

	assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "AWS4-HMAC-SHA256"))
	assert.NotEmpty(t, req.Header.Get("X-Amz-Content-Sha256"))

	// body must still be readable by the transport after hashing
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, buf.String())
}

func TestSignRequestWithQueryParameters(t *testing.T) {
	interceptor := newStaticInterceptor(t)

	req, err := http.NewRequest("GET", "https://search-test.us-east-1.es.amazonaws.com/_search?q=test&size=10", nil)
	require.NoError(t, err)

	require.NoError(t, interceptor.Sign(req))
	assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "AWS4-HMAC-SHA256"))
}

func TestExistingAuthorizationReplaced(t *testing.T) {
	interceptor := newStaticInterceptor(t)

	req, err := http.NewRequest("GET", "https://search-test.us-east-1.es.amazonaws.com/_search", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token123")

	require.NoError(t, interceptor.Sign(req))

	values := req.Header.Values("Authorization")
	require.Len(t, values, 1)
	assert.True(t, strings.HasPrefix(values[0], "AWS4-HMAC-SHA256"))
}

func TestSigningTwiceProducesDifferentSignatures(t *testing.T) {
	interceptor := newStaticInterceptor(t)

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	interceptor.now = func() time.Time { return at }

	sign := func() string {
		req, err := http.NewRequest("GET", "https://search-test.us-east-1.es.amazonaws.com/_search", nil)
		require.NoError(t, err)
		require.NoError(t, interceptor.Sign(req))
		return req.Header.Get("Authorization")
	}

	first := sign()
	at = at.Add(time.Second)
	second := sign()

	assert.NotEqual(t, first, second)
}

type failingProvider struct{}

func (failingProvider) Retrieve(context.Context) (credentials.Credentials, error) {
	return credentials.Credentials{}, fmt.Errorf("%w: provider broken for test", credentials.ErrUnavailable)
}

func TestCredentialFailureAbortsRequest(t *testing.T) {
	interceptor := &Interceptor{
		provider: failingProvider{},
		signer:   awssigv4.NewSigner(),
		region:   "us-east-1",
		service:  "es",
		now:      time.Now,
	}

	req, err := http.NewRequest("GET", "https://search-test.us-east-1.es.amazonaws.com/_search", nil)
	require.NoError(t, err)

	err = interceptor.Sign(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSigningFailure))
	assert.True(t, errors.Is(err, credentials.ErrUnavailable))

	// no partial signing state may be left on the request
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("X-Amz-Date"))
	assert.Empty(t, req.Header.Get("X-Amz-Content-Sha256"))
}

func TestTransportSignsAndForwards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	interceptor := newStaticInterceptor(t)
	client := &http.Client{Transport: NewTransport(interceptor, nil)}

	resp, err := client.Post(srv.URL+"/test-index/_doc", "application/json", strings.NewReader(`{"field":"value"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransportDoesNotForwardUnsigned(t *testing.T) {
	var forwarded bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = true
	}))
	t.Cleanup(srv.Close)

	interceptor := &Interceptor{
		provider: failingProvider{},
		signer:   awssigv4.NewSigner(),
		region:   "us-east-1",
		service:  "es",
		now:      time.Now,
	}
	client := &http.Client{Transport: NewTransport(interceptor, nil)}

	_, err := client.Get(srv.URL + "/_search")
	require.Error(t, err)
	assert.False(t, forwarded, "request must not reach the transport unsigned")
}

func TestInterceptorWithInstanceProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/latest/api/token" {
			fmt.Fprint(w, "test-token")
			return
		}
		if r.Header.Get("X-aws-ec2-metadata-token") != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/latest/meta-data/iam/security-credentials/":
			fmt.Fprint(w, "connect-role")
		case "/latest/meta-data/iam/security-credentials/connect-role":
			fmt.Fprintf(w, `{"Code":"Success","AccessKeyId":"role-access-key","SecretAccessKey":"role-secret-key","Token":"role-session-token","Expiration":%q}`,
				time.Now().Add(6*time.Hour).Format(time.RFC3339))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	interceptor, err := New(Config{
		Region:           "us-west-2",
		Provider:         ProviderInstanceProfile,
		MetadataEndpoint: srv.URL,
	})
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "https://search-test.us-west-2.es.amazonaws.com/_search", nil)
	require.NoError(t, err)

	require.NoError(t, interceptor.Sign(req))

	authorization := req.Header.Get("Authorization")
	assert.Contains(t, authorization, "role-access-key/")
	assert.Contains(t, authorization, "us-west-2/es/aws4_request")
	assert.Contains(t, authorization, "x-amz-security-token")
	assert.Equal(t, "role-session-token", req.Header.Get("X-Amz-Security-Token"))
}
