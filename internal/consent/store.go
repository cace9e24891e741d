package consent

// Toggle is one rendered category checkbox as collected from the view.
type Toggle struct {
	Slug     string
	Checked  bool
	Disabled bool
}

// Store owns the canonical consent record for one page.
type Store struct {
	settings Settings
	codec    *Codec
	jar      CookieJar
	clock    Clock
	logger   Logger
}

// NewStore creates a Store persisting through jar.
func NewStore(settings Settings, jar CookieJar, clock Clock, logger Logger) *Store {
	s := settings.WithDefaults()
	return &Store{
		settings: s,
		codec:    NewCodec(s, clock),
		jar:      jar,
		clock:    clock,
		logger:   logger,
	}
}

// Settings returns the completed settings the store was built with.
func (s *Store) Settings() Settings { return s.settings }

// Read returns the stored record, or nil when there is none or it cannot be
// decoded. Legacy records are normalized.
func (s *Store) Read() *Record {
	r := s.codec.Read(s.jar)
	if r == nil {
		return nil
	}
	if r.LegacyDoNotSell {
		if _, ok := r.Categories[s.settings.OptOutSlug]; !ok {
			r.Categories[s.settings.OptOutSlug] = true
		}
		r.LegacyDoNotSell = false
	}
	return r
}

// Write builds a new record from categories and persists it. It is the only
// way to change the stored consent. Cookie failures are logged and ignored;
// the returned record is valid either way.
func (s *Store) Write(categories map[string]bool) *Record {
	cats := copyCategories(categories)
	cats[s.settings.NecessarySlug] = true
	for _, c := range s.settings.Categories {
		if c.Required {
			cats[c.Slug] = true
		}
	}

	r := &Record{
		Version:    s.settings.Version,
		Timestamp:  stampMillis(s.clock),
		Categories: cats,
		Type:       s.ComputeType(cats),
	}

	if err := s.codec.Write(s.jar, r); err != nil {
		s.logger.Warn("consent cookie not written", "error", err)
	}
	s.logger.Debug("consent written", "type", string(r.Type), "version", r.Version)
	return r
}

// IsStale reports whether r must be re-prompted: it is missing or was written
// under a different configuration version.
func (s *Store) IsStale(r *Record) bool {
	return r == nil || r.Version != s.settings.Version
}

// ComputeType summarizes the optional categories. Required categories and the
// opt-out slug never count.
func (s *Store) ComputeType(categories map[string]bool) Type {
	total, on := 0, 0
	for _, c := range s.settings.Categories {
		if s.settings.isRequired(c.Slug) || c.Slug == s.settings.OptOutSlug {
			continue
		}
		total++
		if categories[c.Slug] {
			on++
		}
	}
	switch {
	case on == 0:
		return TypeNone
	case on == total:
		return TypeFull
	default:
		return TypePartial
	}
}

// Defaults returns the configured default value of every category.
func (s *Store) Defaults() map[string]bool {
	out := make(map[string]bool, len(s.settings.Categories)+1)
	for _, c := range s.settings.Categories {
		out[c.Slug] = c.Default || c.Required
	}
	out[s.settings.NecessarySlug] = true
	return out
}

// AcceptAll grants every optional category and keeps sale allowed.
func (s *Store) AcceptAll() map[string]bool {
	out := s.Defaults()
	for _, c := range s.settings.Categories {
		if !c.Required {
			out[c.Slug] = true
		}
	}
	out[s.settings.OptOutSlug] = false
	return out
}

// RejectAll denies every optional category and opts out of sale.
func (s *Store) RejectAll() map[string]bool {
	out := s.Defaults()
	for _, c := range s.settings.Categories {
		if !c.Required {
			out[c.Slug] = false
		}
	}
	out[s.settings.OptOutSlug] = true
	out[s.settings.NecessarySlug] = true
	return out
}

// FromToggles collects the rendered checkboxes. Necessary is always true;
// disabled or required inputs keep their configured default.
func (s *Store) FromToggles(toggles []Toggle) map[string]bool {
	out := s.Defaults()
	for _, t := range toggles {
		switch {
		case t.Slug == s.settings.NecessarySlug:
			out[t.Slug] = true
		case t.Disabled || s.settings.isRequired(t.Slug):
			continue
		default:
			out[t.Slug] = t.Checked
		}
	}
	return out
}
