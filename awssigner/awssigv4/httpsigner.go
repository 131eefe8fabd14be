package awssigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cbsmith/opensearch-connector-for-apache-kafka/awssigner/credentials"
	internal "github.com/cbsmith/opensearch-connector-for-apache-kafka/awssigner/internal"
)

type keyDerivator interface {
	DeriveKey(accessKeyID, secretAccessKey, service, region string, signingTime internal.SigningTime) []byte
}

// Signer applies AWS v4 signing to a given request. Safe for concurrent use,
// the only shared state is the derived key cache.
type Signer struct {
	options      SignerOptions
	keyDerivator keyDerivator
}

type SignerOptions struct {
	// Disables the automatic escaping of the URI path of the request for the
	// signature's canonical string's path. For services that do not need
	// additional escaping then use this to disable the signer escaping the
	// path.
	//
	// http://docs.aws.amazon.com/general/latest/gr/sigv4-create-canonical-request.html
	DisableURIPathEscaping bool

	// Disables setting the X-Amz-Content-Sha256 header carrying the payload
	// hash. The hash is still part of the canonical request either way.
	DisableContentSHA256Header bool
}

func NewSigner(optFns ...func(signer *SignerOptions)) *Signer {
	options := SignerOptions{}

	for _, fn := range optFns {
		fn(&options)
	}

	return &Signer{options: options, keyDerivator: internal.NewSigningKeyDeriver()}
}

// SignHTTP signs the request in place: it sets X-Amz-Date, the session token
// header when the credentials carry one, optionally X-Amz-Content-Sha256,
// and replaces the Authorization header. payloadHash is the hex encoded
// sha256 of the request body; an empty value means an empty body and hashes
// accordingly, the hash is never omitted.
func (s *Signer) SignHTTP(creds credentials.Credentials, req *http.Request, payloadHash, service, region string, signingTime time.Time, optFns ...func(options *SignerOptions)) error {
	options := s.options

	for _, fn := range optFns {
		fn(&options)
	}

	signer := &httpSigner{
		Request:      req,
		PayloadHash:  payloadHash,
		ServiceName:  service,
		Region:       region,
		Credentials:  creds,
		Time:         internal.NewSigningTime(signingTime.UTC()),
		KeyDerivator: s.keyDerivator,
		Options:      options,
	}

	_, err := signer.Build()
	return err
}

// CanonicalRequest is the normalized form of a request used as signing
// input. It is rebuilt for every request and never cached.
type CanonicalRequest struct {
	Method        string
	URI           string
	Query         string
	Headers       string
	SignedHeaders string
	PayloadHash   string
}

// String renders the canonical request exactly as the remote verifier
// recomputes it.
func (c CanonicalRequest) String() string {
	return strings.Join([]string{
		c.Method,
		c.URI,
		c.Query,
		c.Headers,
		c.SignedHeaders,
		c.PayloadHash,
	}, "\n")
}

type httpSigner struct {
	Request      *http.Request
	ServiceName  string
	Region       string
	Time         internal.SigningTime
	Credentials  credentials.Credentials
	KeyDerivator keyDerivator
	PayloadHash  string
	Options      SignerOptions
}

type signedRequest struct {
	Request          *http.Request
	SignedHeaders    http.Header
	CanonicalRequest CanonicalRequest
	StringToSign     string
}

func (s *httpSigner) Build() (signedRequest, error) {
	req := s.Request
	headers := req.Header

	if s.PayloadHash == "" {
		s.PayloadHash = internal.EmptyBodySHA256
	}

	s.setRequiredSigningFields(headers)

	query := req.URL.Query()
	for key := range query {
		sort.Strings(query[key])
	}
	rawQuery := strings.ReplaceAll(query.Encode(), "+", "%20")

	host := internal.HostForHeader(req)

	signedHeaders, signedHeadersStr, canonicalHeaderStr := s.buildCanonicalHeaders(host, internal.IgnoredHeaders, headers, req.ContentLength)

	canonicalURI := internal.GetURIPath(req.URL)
	if !s.Options.DisableURIPathEscaping {
		canonicalURI = internal.EscapePath(canonicalURI, false)
	}

	canonical := CanonicalRequest{
		Method:        req.Method,
		URI:           canonicalURI,
		Query:         rawQuery,
		Headers:       canonicalHeaderStr,
		SignedHeaders: signedHeadersStr,
		PayloadHash:   s.PayloadHash,
	}

	credentialScope := s.buildCredentialScope()
	credentialStr := s.Credentials.AccessKeyID + "/" + credentialScope

	strToSign := s.buildStringToSign(credentialScope, canonical.String())
	signature := s.buildSignature(strToSign)

	headers[internal.AuthorizationHeader] = append(headers[internal.AuthorizationHeader][:0], buildAuthorizationHeader(credentialStr, signedHeadersStr, signature))

	req.URL.RawQuery = rawQuery

	return signedRequest{
		Request:          req,
		SignedHeaders:    signedHeaders,
		CanonicalRequest: canonical,
		StringToSign:     strToSign,
	}, nil
}

// setRequiredSigningFields splices the signing headers into the live request
// before canonicalization so they end up in the signed header set. Existing
// values are replaced, the transport must never see duplicates.
func (s *httpSigner) setRequiredSigningFields(headers http.Header) {
	amzDate := s.Time.TimeFormat()

	headers[internal.AmzDateKey] = append(headers[internal.AmzDateKey][:0], amzDate)

	if len(s.Credentials.SessionToken) > 0 {
		headers[internal.AmzSecurityTokenKey] = append(headers[internal.AmzSecurityTokenKey][:0], s.Credentials.SessionToken)
	}

	if !s.Options.DisableContentSHA256Header {
		headers[internal.AmzContentSHA256Key] = append(headers[internal.AmzContentSHA256Key][:0], s.PayloadHash)
	}
}

func (s *httpSigner) buildCanonicalHeaders(host string, rule internal.Rule, header http.Header, length int64) (signed http.Header, signedHeaders, canonicalHeadersStr string) {
	signed = make(http.Header)

	var headers []string
	const hostHeader = "host"
	headers = append(headers, hostHeader)
	signed[hostHeader] = append(signed[hostHeader], host)

	const contentLengthHeader = "content-length"
	if length > 0 {
		headers = append(headers, contentLengthHeader)
		signed[contentLengthHeader] = append(signed[contentLengthHeader], strconv.FormatInt(length, 10))
	}

	for k, v := range header {
		if !rule.IsValid(k) {
			continue // ignored header
		}
		if strings.EqualFold(k, contentLengthHeader) {
			// prevent signing already handled content-length header.
			continue
		}
		if strings.EqualFold(k, "Host") {
			// the canonical host entry is built from the request URL
			continue
		}

		lowerCaseKey := strings.ToLower(k)
		if _, ok := signed[lowerCaseKey]; ok {
			// include additional values
			signed[lowerCaseKey] = append(signed[lowerCaseKey], v...)
			continue
		}

		headers = append(headers, lowerCaseKey)
		signed[lowerCaseKey] = v
	}
	sort.Strings(headers)

	signedHeaders = strings.Join(headers, ";")

	var canonicalHeaders strings.Builder
	n := len(headers)
	const colon = ':'
	for i := range n {
		if headers[i] == hostHeader {
			canonicalHeaders.WriteString(hostHeader)
			canonicalHeaders.WriteRune(colon)
			canonicalHeaders.WriteString(internal.StripExcessSpaces(host))
		} else {
			canonicalHeaders.WriteString(headers[i])
			canonicalHeaders.WriteRune(colon)
			// Trim out leading, trailing, and dedup inner spaces from signed header values.
			values := signed[headers[i]]
			for j, v := range values {
				cleanedValue := strings.TrimSpace(internal.StripExcessSpaces(v))
				canonicalHeaders.WriteString(cleanedValue)
				if j < len(values)-1 {
					canonicalHeaders.WriteRune(',')
				}
			}
		}
		canonicalHeaders.WriteRune('\n')
	}
	canonicalHeadersStr = canonicalHeaders.String()

	return signed, signedHeaders, canonicalHeadersStr
}

func (s *httpSigner) buildCredentialScope() string {
	return internal.BuildCredentialScope(s.Time, s.Region, s.ServiceName)
}

func (s *httpSigner) buildStringToSign(credentialScope, canonicalRequestString string) string {
	return strings.Join([]string{
		internal.SigningAlgorithm,
		s.Time.TimeFormat(),
		credentialScope,
		hex.EncodeToString(makeHash(sha256.New(), []byte(canonicalRequestString))),
	}, "\n")
}

func (s *httpSigner) buildSignature(strToSign string) string {
	key := s.KeyDerivator.DeriveKey(s.Credentials.AccessKeyID, s.Credentials.SecretAccessKey, s.ServiceName, s.Region, s.Time)
	return hex.EncodeToString(internal.HMACSHA256(key, []byte(strToSign)))
}

func makeHash(hash hash.Hash, b []byte) []byte {
	hash.Reset()
	hash.Write(b)
	return hash.Sum(nil)
}

func buildAuthorizationHeader(credentialStr, signedHeadersStr, signingSignature string) string {
	const credential = "Credential="
	const signedHeaders = "SignedHeaders="
	const signature = "Signature="
	const commaSpace = ", "

	var parts strings.Builder
	parts.Grow(len(internal.SigningAlgorithm) + 1 +
		len(credential) + len(credentialStr) + 2 +
		len(signedHeaders) + len(signedHeadersStr) + 2 +
		len(signature) + len(signingSignature),
	)
	parts.WriteString(internal.SigningAlgorithm)
	parts.WriteRune(' ')
	parts.WriteString(credential)
	parts.WriteString(credentialStr)
	parts.WriteString(commaSpace)
	parts.WriteString(signedHeaders)
	parts.WriteString(signedHeadersStr)
	parts.WriteString(commaSpace)
	parts.WriteString(signature)
	parts.WriteString(signingSignature)
	return parts.String()
}
