package web

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPJar_ReadAfterWrite(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "consent_v2", Value: "old"})
	w := httptest.NewRecorder()
	jar := newHTTPJar(w, req, false)

	if v, ok := jar.Cookie("consent_v2"); !ok || v != "old" {
		t.Fatalf("Cookie() = %q, %v; want old from request", v, ok)
	}

	if err := jar.SetCookie(&http.Cookie{Name: "consent_v2", Value: "new", Path: "/"}); err != nil {
		t.Fatalf("SetCookie() error = %v", err)
	}
	if v, _ := jar.Cookie("consent_v2"); v != "new" {
		t.Errorf("Cookie() after write = %q, want new", v)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "new" {
		t.Errorf("Set-Cookie = %v, want one cookie with value new", cookies)
	}

	if _, ok := jar.Cookie("missing"); ok {
		t.Error("Cookie(missing) reported present")
	}
}

func TestHTTPJar_RejectsInvalidCookie(t *testing.T) {
	w := httptest.NewRecorder()
	jar := newHTTPJar(w, httptest.NewRequest(http.MethodGet, "/", nil), false)

	if err := jar.SetCookie(&http.Cookie{Name: "bad name", Value: "v"}); err == nil {
		t.Fatal("SetCookie() expected error for invalid name")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("invalid cookie was written")
	}
}

func TestHTTPJar_Secure(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*http.Request)
		trusted bool
		want    bool
	}{
		{name: "plain http", setup: func(*http.Request) {}, want: false},
		{name: "tls", setup: func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, want: true},
		{name: "forwarded https from trusted proxy", setup: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }, trusted: true, want: true},
		{name: "forwarded http from trusted proxy", setup: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "http") }, trusted: true, want: false},
		{name: "forwarded https from client", setup: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			if got := newHTTPJar(httptest.NewRecorder(), req, tt.trusted).Secure(); got != tt.want {
				t.Errorf("Secure() = %v, want %v", got, tt.want)
			}
		})
	}
}
