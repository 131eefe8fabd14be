package awssigner

import (
	"net/http"
)

// Transport signs each request before handing it to the next RoundTripper.
// A request whose signing attempt fails is never forwarded.
type Transport struct {
	interceptor *Interceptor
	next        http.RoundTripper
}

func NewTransport(interceptor *Interceptor, next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{
		interceptor: interceptor,
		next:        next,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.interceptor.Sign(req); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
