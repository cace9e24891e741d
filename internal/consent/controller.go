package consent

// State is the banner's position in its lifecycle for one page load.
type State int

const (
	StateHidden State = iota
	StateSummary
	StatePreferences
	StateDismissed
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateSummary:
		return "summary"
	case StatePreferences:
		return "preferences"
	case StateDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// Visible reports whether the banner is on screen.
func (s State) Visible() bool {
	return s == StateSummary || s == StatePreferences
}

// Controller drives banner visibility, focus and category editing.
// A nil view makes every banner operation a no-op.
type Controller struct {
	store   *Store
	gateway *Gateway
	view    View
	logger  Logger

	state       State
	current     *Record
	returnFocus string
	unbind      func()
}

// NewController creates a Controller in StateHidden.
func NewController(store *Store, gateway *Gateway, view View, logger Logger) *Controller {
	return &Controller{
		store:   store,
		gateway: gateway,
		view:    view,
		logger:  logger,
		state:   StateHidden,
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Current returns the record the banner is working from, or nil.
func (c *Controller) Current() *Record { return c.current }

// Start binds the view and decides, from existing, whether to prompt.
// A missing or stale record pushes the denied tag-consent default first.
// A fresh record dismisses silently and re-syncs the tag-consent signal.
func (c *Controller) Start(existing *Record) {
	c.current = existing
	stale := c.store.IsStale(existing)
	if stale {
		c.gateway.Default()
	}
	if c.view == nil {
		c.logger.Debug("no banner mount point, controller idle")
		return
	}
	if c.unbind == nil {
		c.unbind = c.view.Bind(c.Dispatch)
	}

	if stale {
		c.open()
		return
	}
	c.state = StateDismissed
	c.view.SetRevisitVisible(true)
	c.gateway.Sync(existing)
}

// Dispatch applies a view event to the state machine.
func (c *Controller) Dispatch(a Action) {
	if c.view == nil {
		return
	}
	switch a {
	case ActionAccept:
		if c.state == StateSummary {
			c.finalize(c.store.AcceptAll())
		}
	case ActionReject:
		if c.state == StateSummary {
			c.finalize(c.store.RejectAll())
		}
	case ActionPreferences:
		if c.state == StateSummary {
			c.state = StatePreferences
			c.view.ShowPreferences(c.panel())
		}
	case ActionSave:
		if c.state == StatePreferences {
			c.finalize(c.store.FromToggles(c.view.Toggles()))
		}
	case ActionEscape:
		if c.state.Visible() {
			c.finalize(c.store.RejectAll())
		}
	case ActionRevisit:
		if c.state == StateDismissed {
			c.open()
		}
	case ActionTab:
		if c.state.Visible() {
			c.cycleFocus(1)
		}
	case ActionShiftTab:
		if c.state.Visible() {
			c.cycleFocus(-1)
		}
	default:
		c.logger.Debug("ignoring unknown banner action", "action", string(a))
	}
}

// Reprompt shows the summary again regardless of the stored record.
func (c *Controller) Reprompt() {
	if c.view == nil || c.state.Visible() {
		return
	}
	c.open()
}

// Revoke replaces the stored consent with the reject-all record.
// It works without a view; the banner is only updated when mounted.
func (c *Controller) Revoke() *Record {
	if c.view == nil {
		r := c.store.Write(c.store.RejectAll())
		c.current = r
		c.gateway.Finalize(r)
		return r
	}
	return c.finalize(c.store.RejectAll())
}

// Close removes the view binding. The controller may be started again.
func (c *Controller) Close() {
	if c.unbind != nil {
		c.unbind()
		c.unbind = nil
	}
}

func (c *Controller) open() {
	if !c.state.Visible() {
		c.returnFocus = c.view.Focused()
	}
	c.state = StateSummary
	c.view.SetRevisitVisible(false)
	c.view.ShowSummary(c.panel())
	c.view.Focus(FocusAccept)
}

func (c *Controller) finalize(categories map[string]bool) *Record {
	r := c.store.Write(categories)
	c.current = r

	wasVisible := c.state.Visible()
	c.state = StateDismissed
	c.view.Hide()
	c.view.SetRevisitVisible(true)
	if wasVisible && c.returnFocus != "" {
		c.view.Focus(c.returnFocus)
	}
	c.returnFocus = ""

	c.gateway.Finalize(r)
	return r
}

// panel lists every configured category. Existing values win over defaults;
// required categories are locked on.
func (c *Controller) panel() []PanelEntry {
	settings := c.store.Settings()
	values := c.store.Defaults()
	if c.current != nil {
		for slug, on := range c.current.Categories {
			values[slug] = on
		}
	}

	entries := make([]PanelEntry, 0, len(settings.Categories))
	for _, cat := range settings.Categories {
		locked := settings.isRequired(cat.Slug)
		entries = append(entries, PanelEntry{
			Category: cat,
			Checked:  locked || values[cat.Slug],
			Disabled: locked,
		})
	}
	return entries
}

// cycleFocus moves focus by step within the banner, wrapping at both ends.
func (c *Controller) cycleFocus(step int) {
	ids := c.view.Focusables()
	if len(ids) == 0 {
		return
	}
	idx := -1
	focused := c.view.Focused()
	for i, id := range ids {
		if id == focused {
			idx = i
			break
		}
	}

	var next int
	switch {
	case idx == -1 && step > 0:
		next = 0
	case idx == -1:
		next = len(ids) - 1
	default:
		next = (idx + step + len(ids)) % len(ids)
	}
	c.view.Focus(ids[next])
}
