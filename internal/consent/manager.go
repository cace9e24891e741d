package consent

// Deps are the page-level collaborators of a Manager. Only Jar is required.
type Deps struct {
	Jar      CookieJar
	View     View        // nil when the page has no banner mount point
	Reporter Reporter    // nil falls back to Settings.LogEndpoint, if any
	Signals  SignalQueue // nil disables the tag-consent signal
	Clock    Clock       // default RealClock
	Logger   Logger      // default NopLogger
}

// Manager owns the consent state of one page: its store, banner controller,
// gateway and event bus. Construct one per page and Close it when done.
type Manager struct {
	store      *Store
	gateway    *Gateway
	controller *Controller
	bus        *Bus
	started    bool
}

// NewManager wires a Manager from settings and deps.
func NewManager(settings Settings, deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = NewNopLogger()
	}
	s := settings.WithDefaults()
	if deps.Reporter == nil && s.LogEndpoint != "" {
		deps.Reporter = NewHTTPReporter(s.LogEndpoint, nil)
	}
	bus := NewBus()
	store := NewStore(s, deps.Jar, deps.Clock, deps.Logger)
	gateway := NewGateway(s, deps.Reporter, deps.Signals, bus, deps.Logger)
	return &Manager{
		store:      store,
		gateway:    gateway,
		controller: NewController(store, gateway, deps.View, deps.Logger),
		bus:        bus,
	}
}

// Start reads the stored record, emits EventLoaded and hands over to the
// banner controller. Subscribe before Start to observe EventLoaded.
func (m *Manager) Start() {
	if m.started {
		return
	}
	m.started = true
	existing := m.store.Read()
	m.bus.Emit(EventLoaded, existing)
	m.controller.Start(existing)
}

// Current returns a copy of the active record, or nil if none exists.
func (m *Manager) Current() *Record {
	if m.started {
		return m.controller.Current().Clone()
	}
	return m.store.Read()
}

// Granted reports whether the visitor allowed the category slug.
func (m *Manager) Granted(slug string) bool {
	return m.Current().Granted(slug)
}

// OptedOutOfSale reports whether the visitor opted out of the sale or
// sharing of personal information.
func (m *Manager) OptedOutOfSale() bool {
	return m.Current().Granted(m.store.Settings().OptOutSlug)
}

// Reprompt shows the banner again.
func (m *Manager) Reprompt() { m.controller.Reprompt() }

// Revoke withdraws consent; equivalent to rejecting everything.
func (m *Manager) Revoke() *Record {
	return m.controller.Revoke().Clone()
}

// Dispatch forwards a banner event to the controller.
func (m *Manager) Dispatch(a Action) { m.controller.Dispatch(a) }

// State returns the banner state.
func (m *Manager) State() State { return m.controller.State() }

// IsStale reports whether the active record needs a fresh prompt.
func (m *Manager) IsStale() bool { return m.store.IsStale(m.Current()) }

// Settings returns the completed settings.
func (m *Manager) Settings() Settings { return m.store.Settings() }

// Subscribe registers fn for kind and returns its unsubscribe function.
func (m *Manager) Subscribe(kind EventKind, fn func(Event)) func() {
	return m.bus.Subscribe(kind, fn)
}

// Wait blocks until background decision reports have finished.
func (m *Manager) Wait() { m.gateway.Wait() }

// Close unbinds the view and drops every subscriber. In-flight reports
// are left to finish on their own.
func (m *Manager) Close() {
	m.controller.Close()
	m.bus.Reset()
	m.started = false
}
