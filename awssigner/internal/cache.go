package awssigner

import (
	"strings"
	"sync"
)

type derivedKeyCache struct {
	values map[string]derivedKey
	mutex  sync.RWMutex
}

type derivedKey struct {
	AccessKey  string
	Date       SigningTime
	Credential []byte
}

// SigningKeyDeriver derives a signing key from a secret access key. Derived
// keys are cached per region/service pair and stay valid for one calendar
// day per access key, since the key derivation chain only consumes the date
// portion of the signing time.
type SigningKeyDeriver struct {
	cache derivedKeyCache
}

func NewSigningKeyDeriver() *SigningKeyDeriver {
	return &SigningKeyDeriver{
		cache: newDerivedKeyCache(),
	}
}

// DeriveKey returns a derived signing key for SigV4 signing.
func (k *SigningKeyDeriver) DeriveKey(accessKeyID, secretAccessKey, service, region string, signingTime SigningTime) []byte {
	return k.cache.getSigningKey(accessKeyID, secretAccessKey, service, region, signingTime)
}

func lookupKey(service, region string) string {
	var s strings.Builder
	s.Grow(len(region) + len(service) + 3)
	s.WriteString(region)
	s.WriteRune('/')
	s.WriteString(service)
	return s.String()
}

func (s *derivedKeyCache) get(key string, accessKeyID string, signingTime SigningTime) ([]byte, bool) {
	cacheEntry, ok := s.values[key]
	if ok && cacheEntry.AccessKey == accessKeyID && isSameDay(signingTime.Time, cacheEntry.Date.Time) {
		return cacheEntry.Credential, true
	}
	return nil, false
}

func (s *derivedKeyCache) getSigningKey(accessKeyID, secretAccessKey, service, region string, signingTime SigningTime) []byte {
	key := lookupKey(service, region)
	s.mutex.RLock()
	if cred, ok := s.get(key, accessKeyID, signingTime); ok {
		s.mutex.RUnlock()
		return cred
	}
	s.mutex.RUnlock()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if cred, ok := s.get(key, accessKeyID, signingTime); ok {
		return cred
	}
	cred := deriveKey(secretAccessKey, service, region, signingTime)
	s.values[key] = derivedKey{
		AccessKey:  accessKeyID,
		Date:       signingTime,
		Credential: cred,
	}
	return cred
}

func deriveKey(secret, service, region string, t SigningTime) []byte {
	hmacDate := HMACSHA256([]byte("AWS4"+secret), []byte(t.ShortTimeFormat()))
	hmacRegion := HMACSHA256(hmacDate, []byte(region))
	hmacService := HMACSHA256(hmacRegion, []byte(service))
	return HMACSHA256(hmacService, []byte("aws4_request"))
}

func newDerivedKeyCache() derivedKeyCache {
	return derivedKeyCache{
		values: make(map[string]derivedKey),
	}
}
