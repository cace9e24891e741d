package app

import (
	"errors"
	"net/http"

	"consent-go/internal/consent"
)

// Inspection is the decoded view of a consent cookie value.
type Inspection struct {
	Record         *consent.Record
	Stale          bool
	OptedOutOfSale bool
	Signals        map[string]string
}

// Inspect decodes a raw consent cookie value the way a page would read it.
// A value that cannot be decoded yields a nil Record and Stale set.
func Inspect(settings consent.Settings, raw string) *Inspection {
	settings = settings.WithDefaults()
	store := consent.NewStore(settings, &valueJar{name: settings.CookieName, value: raw}, consent.RealClock{}, consent.NewNopLogger())

	r := store.Read()
	in := &Inspection{
		Record:         r,
		Stale:          store.IsStale(r),
		OptedOutOfSale: r.Granted(settings.OptOutSlug),
	}
	if r != nil {
		in.Signals = consent.Signals(r.Categories, settings)
	}
	return in
}

// valueJar is a read-only jar holding one cookie.
type valueJar struct {
	name  string
	value string
}

var _ consent.CookieJar = (*valueJar)(nil)

func (j *valueJar) Cookie(name string) (string, bool) {
	if name != j.name || j.value == "" {
		return "", false
	}
	return j.value, true
}

func (j *valueJar) SetCookie(*http.Cookie) error {
	return errors.New("read-only cookie jar")
}

func (j *valueJar) Secure() bool { return false }
