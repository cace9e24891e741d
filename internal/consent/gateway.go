package consent

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Report is a finalized decision as sent to the logging endpoint.
type Report struct {
	Action        string
	Consent       Type
	Categories    string // comma-joined granted slugs
	ConfigVersion string
}

// Reporter delivers decision reports. Delivery is best effort.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// Gateway reports finalized decisions, keeps the tag-consent signal in step
// and notifies local listeners.
type Gateway struct {
	settings Settings
	reporter Reporter
	queue    SignalQueue
	bus      *Bus
	logger   Logger
	timeout  time.Duration
	inflight sync.WaitGroup
}

// NewGateway creates a Gateway. reporter and queue may be nil.
func NewGateway(settings Settings, reporter Reporter, queue SignalQueue, bus *Bus, logger Logger) *Gateway {
	return &Gateway{
		settings: settings.WithDefaults(),
		reporter: reporter,
		queue:    queue,
		bus:      bus,
		logger:   logger,
		timeout:  10 * time.Second,
	}
}

// Finalize reports r in the background, updates the tag-consent signal and
// emits EventFinalized. It never blocks on the network.
func (g *Gateway) Finalize(r *Record) {
	if g.reporter != nil {
		report := g.reportFor(r)
		g.inflight.Add(1)
		go func() {
			defer g.inflight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
			defer cancel()
			if err := g.reporter.Report(ctx, report); err != nil {
				g.logger.Warn("decision report failed", "error", err, "consent", string(report.Consent))
			}
		}()
	}
	g.Sync(r)
	g.bus.Emit(EventFinalized, r)
}

// Default pushes the tag-consent default for a visitor without a current
// decision: every signal denied except security storage.
func (g *Gateway) Default() {
	if !g.settings.ConsentMode || g.queue == nil {
		return
	}
	g.queue.Push(TagCommand{
		Command: "consent",
		Action:  "default",
		Signals: Signals(nil, g.settings),
	})
}

// Sync pushes the tag-consent update for r when consent mode is enabled.
func (g *Gateway) Sync(r *Record) {
	if !g.settings.ConsentMode || g.queue == nil || r == nil {
		return
	}
	g.queue.Push(TagCommand{
		Command: "consent",
		Action:  "update",
		Signals: Signals(r.Categories, g.settings),
	})
}

// Wait blocks until every report started by Finalize has returned.
func (g *Gateway) Wait() {
	g.inflight.Wait()
}

func (g *Gateway) reportFor(r *Record) Report {
	return Report{
		Action:        g.settings.LogAction,
		Consent:       r.Type,
		Categories:    strings.Join(r.GrantedSlugs(), ","),
		ConfigVersion: r.Version,
	}
}
