package web

import (
	"fmt"
	"net/http"
	"strings"

	"consent-go/internal/consent"
)

// httpJar exposes a request's cookies to the consent store and answers
// writes with Set-Cookie headers. Written values shadow the request's
// so a read after a write sees the new record.
type httpJar struct {
	r       *http.Request
	w       http.ResponseWriter
	written map[string]string

	// trustForwarded is set when the request came from a trusted proxy.
	trustForwarded bool
}

var _ consent.CookieJar = (*httpJar)(nil)

func newHTTPJar(w http.ResponseWriter, r *http.Request, trustForwarded bool) *httpJar {
	return &httpJar{r: r, w: w, written: make(map[string]string), trustForwarded: trustForwarded}
}

func (j *httpJar) Cookie(name string) (string, bool) {
	if v, ok := j.written[name]; ok {
		return v, true
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (j *httpJar) SetCookie(c *http.Cookie) error {
	if err := c.Valid(); err != nil {
		return fmt.Errorf("invalid cookie %q: %w", c.Name, err)
	}
	http.SetCookie(j.w, c)
	j.written[c.Name] = c.Value
	return nil
}

// Secure reports whether the page reached us over TLS, directly or through
// a trusted proxy that sets X-Forwarded-Proto. The header is ignored on
// requests from any other peer.
func (j *httpJar) Secure() bool {
	if j.r.TLS != nil {
		return true
	}
	if !j.trustForwarded {
		return false
	}
	return strings.EqualFold(j.r.Header.Get("X-Forwarded-Proto"), "https")
}
