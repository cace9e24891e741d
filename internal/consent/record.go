package consent

import (
	"sort"
	"strings"
)

// Type is the aggregate summary of a record's optional categories.
type Type string

const (
	TypeFull    Type = "full"
	TypePartial Type = "partial"
	TypeNone    Type = "none"
)

// ParseType returns the Type named by s, or false if s is not one of
// full, partial or none.
func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeFull, TypePartial, TypeNone:
		return t, true
	default:
		return "", false
	}
}

// Record is the persisted consent document. Records are never patched in
// place: every change produces a new Record through Store.Write.
type Record struct {
	Version    string          `json:"version"`
	Timestamp  int64           `json:"ts"`
	Categories map[string]bool `json:"categories"`
	Type       Type            `json:"type"`

	// LegacyDoNotSell carries the top-level "dns" flag written by older
	// banner versions. It is only ever read; Store.Read folds it into the
	// opt-out category and clears it.
	LegacyDoNotSell bool `json:"dns,omitempty"`
}

// Granted reports whether slug is true in the record.
func (r *Record) Granted(slug string) bool {
	if r == nil {
		return false
	}
	return r.Categories[slug]
}

// GrantedSlugs returns the sorted slugs whose value is true.
func (r *Record) GrantedSlugs() []string {
	if r == nil {
		return nil
	}
	var out []string
	for slug, on := range r.Categories {
		if on {
			out = append(out, slug)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Categories = copyCategories(r.Categories)
	return &cp
}

// Category describes one configurable grouping of cookies or tracking purposes.
type Category struct {
	Slug        string
	Name        string
	Description string
	// Required categories are locked on and ignored when computing the Type.
	Required bool
	// Default is the value used before the visitor has decided anything.
	Default bool
}

func copyCategories(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
