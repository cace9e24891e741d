package web

import "consent-go/internal/consent"

// Banner modes reported to the page.
const (
	modeSummary     = "summary"
	modePreferences = "preferences"
)

// pageView records what the banner would render for one request. The
// response serializes it so the page script can mirror the server's
// decision without reimplementing the state machine.
type pageView struct {
	handler func(consent.Action)
	mode    string
	revisit bool
	panel   []consent.PanelEntry
	focused string

	// checked holds the category slugs submitted with a save. nil keeps
	// the rendered state.
	checked map[string]bool
}

var _ consent.View = (*pageView)(nil)

func newPageView(focused string) *pageView {
	return &pageView{focused: focused}
}

func (v *pageView) Bind(handler func(consent.Action)) func() {
	v.handler = handler
	return func() { v.handler = nil }
}

// fire delivers a banner event as the page's own controls would.
func (v *pageView) fire(a consent.Action) {
	if v.handler != nil {
		v.handler(a)
	}
}

func (v *pageView) ShowSummary(panel []consent.PanelEntry) {
	v.mode = modeSummary
	v.panel = panel
}

func (v *pageView) ShowPreferences(panel []consent.PanelEntry) {
	v.mode = modePreferences
	v.panel = panel
}

func (v *pageView) Hide() {
	v.mode = ""
	v.panel = nil
}

func (v *pageView) SetRevisitVisible(visible bool) { v.revisit = visible }

func (v *pageView) Toggles() []consent.Toggle {
	out := make([]consent.Toggle, 0, len(v.panel))
	for _, e := range v.panel {
		checked := e.Checked
		if v.checked != nil && !e.Disabled {
			checked = v.checked[e.Category.Slug]
		}
		out = append(out, consent.Toggle{
			Slug:     e.Category.Slug,
			Checked:  checked,
			Disabled: e.Disabled,
		})
	}
	return out
}

func (v *pageView) Focusables() []string {
	switch v.mode {
	case modeSummary:
		return []string{consent.FocusAccept, consent.FocusReject, consent.FocusPreferences}
	case modePreferences:
		var ids []string
		for _, e := range v.panel {
			if !e.Disabled {
				ids = append(ids, "category-"+e.Category.Slug)
			}
		}
		return append(ids, consent.FocusSave)
	default:
		return nil
	}
}

func (v *pageView) Focused() string { return v.focused }

func (v *pageView) Focus(id string) { v.focused = id }

// setChecked records the submitted slugs for the next Toggles call.
func (v *pageView) setChecked(slugs []string) {
	v.checked = make(map[string]bool, len(slugs))
	for _, s := range slugs {
		v.checked[s] = true
	}
}
