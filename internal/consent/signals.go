package consent

// Tag-consent signal vocabulary understood by third-party tag managers.
const (
	SignalAdStorage              = "ad_storage"
	SignalAdUserData             = "ad_user_data"
	SignalAdPersonalization      = "ad_personalization"
	SignalAnalyticsStorage       = "analytics_storage"
	SignalFunctionalityStorage   = "functionality_storage"
	SignalPersonalizationStorage = "personalization_storage"
	SignalSecurityStorage        = "security_storage"

	Granted = "granted"
	Denied  = "denied"
)

// TagCommand is one entry pushed onto the global signal queue, in the
// ("consent", "update", {...}) shape tag managers read.
type TagCommand struct {
	Command string            `json:"command"`
	Action  string            `json:"action"`
	Signals map[string]string `json:"signals"`
}

// SignalQueue is the page's global tag-manager queue.
type SignalQueue interface {
	Push(cmd TagCommand)
}

// Signals maps categories to the tag-consent vocabulary. Ad signals are
// granted only when ads are allowed and the visitor has not opted out of sale.
func Signals(categories map[string]bool, settings Settings) map[string]string {
	s := settings.WithDefaults()
	ads := categories[s.AdsSlug] && !categories[s.OptOutSlug]
	functional := categories[s.FunctionalSlug]
	return map[string]string{
		SignalAdStorage:              grant(ads),
		SignalAdUserData:             grant(ads),
		SignalAdPersonalization:      grant(ads),
		SignalAnalyticsStorage:       grant(categories[s.AnalyticsSlug]),
		SignalFunctionalityStorage:   grant(functional),
		SignalPersonalizationStorage: grant(functional),
		SignalSecurityStorage:        Granted,
	}
}

func grant(ok bool) string {
	if ok {
		return Granted
	}
	return Denied
}
