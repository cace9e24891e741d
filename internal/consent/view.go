package consent

// Action is a user or keyboard event delivered by the view.
type Action string

const (
	ActionAccept      Action = "accept"
	ActionReject      Action = "reject"
	ActionPreferences Action = "preferences"
	ActionSave        Action = "save"
	ActionRevisit     Action = "revisit"
	ActionEscape      Action = "escape"
	ActionTab         Action = "tab"
	ActionShiftTab    Action = "shift-tab"
)

// ParseAction returns the Action named by s.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionAccept, ActionReject, ActionPreferences, ActionSave,
		ActionRevisit, ActionEscape, ActionTab, ActionShiftTab:
		return a, true
	default:
		return "", false
	}
}

// Focus targets owned by the banner.
const (
	FocusAccept      = "accept"
	FocusReject      = "reject"
	FocusPreferences = "preferences"
	FocusSave        = "save"
	FocusRevisit     = "revisit"
)

// PanelEntry is one row of the category panel.
type PanelEntry struct {
	Category Category
	Checked  bool
	Disabled bool
}

// View is the banner's mount point on the page.
type View interface {
	// Bind registers the handler for every banner event and returns the
	// function that removes it.
	Bind(handler func(Action)) (unbind func())

	// ShowSummary displays the banner with accept, reject and preferences controls.
	ShowSummary(panel []PanelEntry)
	// ShowPreferences expands the category panel and hides the summary controls.
	ShowPreferences(panel []PanelEntry)
	// Hide removes the banner.
	Hide()
	// SetRevisitVisible shows or hides the persistent revisit control.
	SetRevisitVisible(visible bool)

	// Toggles returns the category checkboxes as currently rendered.
	Toggles() []Toggle
	// Focusables returns the banner's focusable element IDs in tab order.
	Focusables() []string
	// Focused returns the ID of the element holding focus, or "".
	Focused() string
	// Focus moves focus to the element with the given ID.
	Focus(id string)
}
