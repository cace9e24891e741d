package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"consent-go/internal/consent"
)

// Page-level actions accepted by POST /api/consent/:action on top of the
// banner's own events.
const (
	actionReprompt = "reprompt"
	actionRevoke   = "revoke"
)

type panelJSON struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Checked     bool   `json:"checked"`
	Disabled    bool   `json:"disabled"`
}

type bannerJSON struct {
	Visible bool        `json:"visible"`
	Mode    string      `json:"mode,omitempty"`
	Revisit bool        `json:"revisit"`
	Focus   string      `json:"focus,omitempty"`
	Panel   []panelJSON `json:"panel,omitempty"`
}

type consentResponse struct {
	State          string               `json:"state"`
	Stale          bool                 `json:"stale"`
	OptedOutOfSale bool                 `json:"opted_out_of_sale"`
	Record         *consent.Record      `json:"record"`
	Signals        map[string]string    `json:"signals,omitempty"`
	Banner         bannerJSON           `json:"banner"`
	Commands       []consent.TagCommand `json:"commands"`
}

// pageSession is the per-request consent core for one page view.
type pageSession struct {
	manager *consent.Manager
	view    *pageView
	queue   *signalRecorder
}

func (s *Server) newSession(c *gin.Context, focused string) *pageSession {
	view := newPageView(focused)
	queue := &signalRecorder{}

	var reporter consent.Reporter
	if s.service != nil {
		reporter = &meteredReporter{next: s.service, metrics: s.metrics, source: "banner"}
	}

	m := consent.NewManager(s.settings, consent.Deps{
		Jar:      newHTTPJar(c.Writer, c.Request, s.fromTrustedProxy(c.Request)),
		View:     view,
		Reporter: reporter,
		Signals:  queue,
		Clock:    s.clock,
		Logger:   s.logger,
	})
	return &pageSession{manager: m, view: view, queue: queue}
}

func (s *Server) getConsent(c *gin.Context) {
	p := s.newSession(c, c.Query("focus"))
	defer p.manager.Close()

	p.manager.Start()
	c.JSON(http.StatusOK, s.render(p))
}

// postConsent replays one banner interaction. The banner state is rebuilt
// from the cookie on every request, so the steps a page would already have
// taken to reach the control (opening the banner, expanding preferences)
// are fired first.
func (s *Server) postConsent(c *gin.Context) {
	name := c.Param("action")
	p := s.newSession(c, c.PostForm("focus"))
	defer p.manager.Close()

	p.manager.Start()

	switch name {
	case actionReprompt:
		p.manager.Reprompt()
	case actionRevoke:
		p.manager.Revoke()
	default:
		a, ok := consent.ParseAction(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + name})
			return
		}
		s.replay(p, a, c.PostFormArray("category"))
	}

	p.manager.Wait()
	c.JSON(http.StatusOK, s.render(p))
}

func (s *Server) replay(p *pageSession, a consent.Action, categories []string) {
	switch a {
	case consent.ActionAccept, consent.ActionReject, consent.ActionPreferences, consent.ActionSave:
		if p.manager.State() == consent.StateDismissed {
			p.view.fire(consent.ActionRevisit)
		}
	}

	if a == consent.ActionSave {
		if p.manager.State() == consent.StateSummary {
			p.view.fire(consent.ActionPreferences)
		}
		p.view.setChecked(categories)
	}
	p.view.fire(a)
}

func (s *Server) render(p *pageSession) consentResponse {
	rec := p.manager.Current()
	resp := consentResponse{
		State:          p.manager.State().String(),
		Stale:          p.manager.IsStale(),
		OptedOutOfSale: p.manager.OptedOutOfSale(),
		Record:         rec,
		Banner: bannerJSON{
			Visible: p.view.mode != "",
			Mode:    p.view.mode,
			Revisit: p.view.revisit,
			Focus:   p.view.focused,
		},
		Commands: p.queue.Commands(),
	}
	if rec != nil {
		resp.Signals = consent.Signals(rec.Categories, s.settings)
	}
	for _, e := range p.view.panel {
		resp.Banner.Panel = append(resp.Banner.Panel, panelJSON{
			Slug:        e.Category.Slug,
			Name:        e.Category.Name,
			Description: e.Category.Description,
			Checked:     e.Checked,
			Disabled:    e.Disabled,
		})
	}
	return resp
}

// postLog is the receiving end of consent.HTTPReporter.
func (s *Server) postLog(c *gin.Context) {
	if s.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision logging disabled"})
		return
	}

	if c.PostForm("action") != s.settings.LogAction {
		s.metrics.rejected.WithLabelValues(reasonAction).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	t, ok := consent.ParseType(c.PostForm("consent"))
	if !ok {
		s.metrics.rejected.WithLabelValues(reasonInvalid).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid consent type"})
		return
	}

	d, err := s.service.Record(c.Request.Context(), consent.Report{
		Action:        s.settings.LogAction,
		Consent:       t,
		Categories:    c.PostForm("categories"),
		ConfigVersion: c.PostForm("config_version"),
	})
	if err != nil {
		s.metrics.rejected.WithLabelValues(reasonStorage).Inc()
		s.logger.Error("decision not stored", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "decision not stored"})
		return
	}

	s.metrics.decisions.WithLabelValues(string(d.Type), "endpoint").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "success", "id": d.ID})
}

func (s *Server) getStats(c *gin.Context) {
	if s.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision logging disabled"})
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	st, err := s.service.Stats(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

type decisionJSON struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Categories    []string `json:"categories"`
	ConfigVersion string   `json:"config_version"`
	CreatedAt     string   `json:"created_at"`
}

func (s *Server) getDecisions(c *gin.Context) {
	if s.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision logging disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	ds, err := s.service.History(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]decisionJSON, 0, len(ds))
	for _, d := range ds {
		cats := d.Categories
		if cats == nil {
			cats = []string{}
		}
		out = append(out, decisionJSON{
			ID:            d.ID,
			Type:          string(d.Type),
			Categories:    cats,
			ConfigVersion: d.ConfigVersion,
			CreatedAt:     d.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	c.JSON(http.StatusOK, out)
}

// meteredReporter counts decisions reported by in-process banners.
type meteredReporter struct {
	next    consent.Reporter
	metrics *Metrics
	source  string
}

func (r *meteredReporter) Report(ctx context.Context, rep consent.Report) error {
	if err := r.next.Report(ctx, rep); err != nil {
		return err
	}
	r.metrics.decisions.WithLabelValues(string(rep.Consent), r.source).Inc()
	return nil
}
