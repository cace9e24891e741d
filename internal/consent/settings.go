package consent

// Fallback values applied by Settings.WithDefaults.
const (
	DefaultCookieName          = "consent_v2"
	DefaultAnalyticsCookieName = "consent_analytics"
	DefaultDurationDays        = 180
	DefaultVersion             = "1"
	DefaultLogAction           = "consent_log_decision"

	DefaultNecessarySlug  = "necessary"
	DefaultOptOutSlug     = "donotsell"
	DefaultAnalyticsSlug  = "analytics"
	DefaultAdsSlug        = "ads"
	DefaultFunctionalSlug = "functional"
)

// Settings is the read-only configuration supplied by the hosting page.
// Zero values are replaced by the documented fallbacks in WithDefaults; the
// consent core never reads a package-level default at call time.
type Settings struct {
	// Version is the active configuration version. Records carrying any
	// other version are stale. Default "1".
	Version string
	// Categories lists every configurable category. Default DefaultCategories().
	Categories []Category

	// CookieName holds the record. Default "consent_v2".
	CookieName string
	// AnalyticsCookieName mirrors the analytics category. Default "consent_analytics".
	AnalyticsCookieName string
	// DurationDays is the cookie lifetime. Default 180.
	DurationDays int

	// ConsentMode enables the third-party tag-consent signal.
	ConsentMode bool
	// LogEndpoint receives decision reports. Empty disables HTTP reporting.
	LogEndpoint string
	// LogAction is the fixed action name sent with every report.
	// Default "consent_log_decision".
	LogAction string

	NecessarySlug  string // default "necessary"
	OptOutSlug     string // default "donotsell"
	AnalyticsSlug  string // default "analytics"
	AdsSlug        string // default "ads"
	FunctionalSlug string // default "functional"
}

// DefaultCategories returns the stock category set. The opt-out-of-sale
// category defaults to false, i.e. sale allowed until the visitor rejects.
func DefaultCategories() []Category {
	return []Category{
		{Slug: DefaultNecessarySlug, Name: "Necessary", Description: "Required for the site to work.", Required: true, Default: true},
		{Slug: DefaultFunctionalSlug, Name: "Functional", Description: "Remember preferences and enhance features."},
		{Slug: DefaultAnalyticsSlug, Name: "Analytics", Description: "Measure visits and usage anonymously."},
		{Slug: DefaultAdsSlug, Name: "Advertising", Description: "Personalise ads and measure campaigns."},
		{Slug: DefaultOptOutSlug, Name: "Do not sell or share my personal information", Description: "Opt out of the sale or sharing of personal information."},
	}
}

// WithDefaults returns a copy of s with every empty field set to its fallback.
func (s Settings) WithDefaults() Settings {
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	if len(s.Categories) == 0 {
		s.Categories = DefaultCategories()
	} else {
		s.Categories = append([]Category(nil), s.Categories...)
	}
	if s.CookieName == "" {
		s.CookieName = DefaultCookieName
	}
	if s.AnalyticsCookieName == "" {
		s.AnalyticsCookieName = DefaultAnalyticsCookieName
	}
	if s.DurationDays <= 0 {
		s.DurationDays = DefaultDurationDays
	}
	if s.LogAction == "" {
		s.LogAction = DefaultLogAction
	}
	if s.NecessarySlug == "" {
		s.NecessarySlug = DefaultNecessarySlug
	}
	if s.OptOutSlug == "" {
		s.OptOutSlug = DefaultOptOutSlug
	}
	if s.AnalyticsSlug == "" {
		s.AnalyticsSlug = DefaultAnalyticsSlug
	}
	if s.AdsSlug == "" {
		s.AdsSlug = DefaultAdsSlug
	}
	if s.FunctionalSlug == "" {
		s.FunctionalSlug = DefaultFunctionalSlug
	}
	return s
}

// Category returns the configured category with the given slug.
func (s Settings) Category(slug string) (Category, bool) {
	for _, c := range s.Categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return Category{}, false
}

// isRequired reports whether slug is the necessary slug or a required category.
func (s Settings) isRequired(slug string) bool {
	if slug == s.NecessarySlug {
		return true
	}
	c, ok := s.Category(slug)
	return ok && c.Required
}
