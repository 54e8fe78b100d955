package ytutils

import "net/http"

// CookieTransport attaches a fixed Cookie header to every request it sends.
type CookieTransport struct {
	cookie string
	next   http.RoundTripper
}

// NewCookieTransport wraps next, http.DefaultTransport when nil. An empty
// cookie leaves requests untouched.
func NewCookieTransport(cookie string, next http.RoundTripper) *CookieTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &CookieTransport{cookie: cookie, next: next}
}

func (ct *CookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if ct.cookie == "" {
		return ct.next.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set("Cookie", ct.cookie)
	return ct.next.RoundTrip(r)
}
