package testutil

import "consent-go/internal/consent"

// FakeView is a consent.View that records what the controller rendered and
// lets tests fire banner events.
type FakeView struct {
	handler func(consent.Action)

	BannerVisible  bool
	PanelVisible   bool
	RevisitVisible bool
	Panel          []consent.PanelEntry
	Checked        map[string]bool

	Focusable []string
	FocusedID string
	// FocusLog lists every element focused, in order.
	FocusLog []string

	Binds   int
	Unbinds int
}

var _ consent.View = (*FakeView)(nil)

// NewFakeView creates a view whose banner exposes the stock focusable controls.
// Focus starts on an element outside the banner.
func NewFakeView() *FakeView {
	return &FakeView{
		Checked: make(map[string]bool),
		Focusable: []string{
			consent.FocusAccept,
			consent.FocusReject,
			consent.FocusPreferences,
		},
		FocusedID: "page-search",
	}
}

// Fire delivers a to the bound handler, as a click or key press would.
func (v *FakeView) Fire(a consent.Action) {
	if v.handler != nil {
		v.handler(a)
	}
}

// Bound reports whether a handler is registered.
func (v *FakeView) Bound() bool { return v.handler != nil }

// SetChecked flips a rendered checkbox, as a user click would.
func (v *FakeView) SetChecked(slug string, checked bool) {
	v.Checked[slug] = checked
}

func (v *FakeView) Bind(handler func(consent.Action)) func() {
	v.handler = handler
	v.Binds++
	return func() {
		v.handler = nil
		v.Unbinds++
	}
}

func (v *FakeView) ShowSummary(panel []consent.PanelEntry) {
	v.BannerVisible = true
	v.PanelVisible = false
	v.render(panel)
}

func (v *FakeView) ShowPreferences(panel []consent.PanelEntry) {
	v.BannerVisible = true
	v.PanelVisible = true
	v.render(panel)
}

func (v *FakeView) Hide() {
	v.BannerVisible = false
	v.PanelVisible = false
}

func (v *FakeView) SetRevisitVisible(visible bool) { v.RevisitVisible = visible }

func (v *FakeView) Toggles() []consent.Toggle {
	toggles := make([]consent.Toggle, 0, len(v.Panel))
	for _, e := range v.Panel {
		toggles = append(toggles, consent.Toggle{
			Slug:     e.Category.Slug,
			Checked:  v.Checked[e.Category.Slug],
			Disabled: e.Disabled,
		})
	}
	return toggles
}

func (v *FakeView) Focusables() []string { return v.Focusable }

func (v *FakeView) Focused() string { return v.FocusedID }

func (v *FakeView) Focus(id string) {
	v.FocusedID = id
	v.FocusLog = append(v.FocusLog, id)
}

func (v *FakeView) render(panel []consent.PanelEntry) {
	v.Panel = panel
	v.Checked = make(map[string]bool, len(panel))
	for _, e := range panel {
		v.Checked[e.Category.Slug] = e.Checked
	}
}
