package consent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CookieJar is the cookie surface of the page hosting the banner.
type CookieJar interface {
	// Cookie returns the raw value of the named cookie.
	Cookie(name string) (string, bool)
	// SetCookie stores c, replacing any cookie with the same name and path.
	SetCookie(c *http.Cookie) error
	// Secure reports whether the page was loaded over a secure transport.
	Secure() bool
}

// Codec converts records to and from cookie values.
type Codec struct {
	cookieName    string
	mirrorName    string
	analyticsSlug string
	days          int
	clock         Clock
}

// NewCodec creates a Codec for the given settings. The settings are
// completed with WithDefaults.
func NewCodec(settings Settings, clock Clock) *Codec {
	s := settings.WithDefaults()
	return &Codec{
		cookieName:    s.CookieName,
		mirrorName:    s.AnalyticsCookieName,
		analyticsSlug: s.AnalyticsSlug,
		days:          s.DurationDays,
		clock:         clock,
	}
}

// Encode serializes r to JSON and percent-encodes it for use as a cookie
// value. Spaces are written as %20 so page scripts can decodeURIComponent it.
func (c *Codec) Encode(r *Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding consent record: %w", err)
	}
	return strings.ReplaceAll(url.QueryEscape(string(data)), "+", "%20"), nil
}

// Decode reverses Encode. Any decoding failure yields nil.
func (c *Codec) Decode(raw string) *Record {
	if raw == "" {
		return nil
	}
	s, err := url.PathUnescape(raw)
	if err != nil {
		return nil
	}
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil
	}
	if r.Categories == nil {
		r.Categories = map[string]bool{}
	}
	return &r
}

// Read decodes the record cookie from jar. Absent or malformed cookies yield nil.
func (c *Codec) Read(jar CookieJar) *Record {
	raw, ok := jar.Cookie(c.cookieName)
	if !ok {
		return nil
	}
	return c.Decode(raw)
}

// Write replaces the record cookie and refreshes the analytics mirror cookie.
func (c *Codec) Write(jar CookieJar, r *Record) error {
	value, err := c.Encode(r)
	if err != nil {
		return err
	}
	secure := jar.Secure()
	if err := jar.SetCookie(c.cookie(c.cookieName, value, secure)); err != nil {
		return fmt.Errorf("writing %s cookie: %w", c.cookieName, err)
	}
	mirror := strconv.FormatBool(r.Categories[c.analyticsSlug])
	if err := jar.SetCookie(c.cookie(c.mirrorName, mirror, secure)); err != nil {
		return fmt.Errorf("writing %s cookie: %w", c.mirrorName, err)
	}
	return nil
}

// CookieName returns the name of the record cookie.
func (c *Codec) CookieName() string { return c.cookieName }

func (c *Codec) cookie(name, value string, secure bool) *http.Cookie {
	lifetime := time.Duration(c.days) * 24 * time.Hour
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  c.clock.Now().Add(lifetime).UTC(),
		MaxAge:   int(lifetime / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
}
