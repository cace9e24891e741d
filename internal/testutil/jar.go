package testutil

import (
	"errors"
	"net/http"
	"sync"

	"consent-go/internal/consent"
)

// ErrCookiesDisabled is returned by a MemoryJar with writes disabled.
var ErrCookiesDisabled = errors.New("cookies disabled")

// MemoryJar is an in-memory consent.CookieJar that keeps the last cookie
// set under each name, attributes included.
type MemoryJar struct {
	mu       sync.Mutex
	cookies  map[string]*http.Cookie
	secure   bool
	disabled bool
	writes   int
}

var _ consent.CookieJar = (*MemoryJar)(nil)

// NewMemoryJar creates an empty jar for a page on an insecure origin.
func NewMemoryJar() *MemoryJar {
	return &MemoryJar{cookies: make(map[string]*http.Cookie)}
}

// NewSecureMemoryJar creates an empty jar for a page on a secure origin.
func NewSecureMemoryJar() *MemoryJar {
	j := NewMemoryJar()
	j.secure = true
	return j
}

// Put stores a raw cookie value as if a previous visit had written it.
func (j *MemoryJar) Put(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = &http.Cookie{Name: name, Value: value, Path: "/"}
}

// Disable makes every subsequent SetCookie fail.
func (j *MemoryJar) Disable() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.disabled = true
}

func (j *MemoryJar) Cookie(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

func (j *MemoryJar) SetCookie(c *http.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.disabled {
		return ErrCookiesDisabled
	}
	cp := *c
	j.cookies[c.Name] = &cp
	j.writes++
	return nil
}

func (j *MemoryJar) Secure() bool { return j.secure }

// Get returns the full cookie last stored under name, or nil.
func (j *MemoryJar) Get(name string) *http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.cookies[name]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// Writes returns how many cookies have been set successfully.
func (j *MemoryJar) Writes() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writes
}
