// Package web serves the consent core over HTTP: banner state for pages,
// the decision-logging endpoint and the dashboard feeds.
package web

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"consent-go/internal/consent"
)

// Options configures a Server.
type Options struct {
	Settings consent.Settings
	// Service stores decisions. nil disables logging and the dashboard feeds.
	Service *consent.LogService
	Logger  consent.Logger
	Clock   consent.Clock

	// RateRPS and RateBurst limit POST /api/log per client IP. RateRPS <= 0
	// disables limiting.
	RateRPS   float64
	RateBurst int

	// TrustedProxies lists the proxy IPs or CIDR ranges whose forwarding
	// headers are honored. Empty trusts no proxy.
	TrustedProxies []string
}

// Server is the gin-backed HTTP surface.
type Server struct {
	settings consent.Settings
	service  *consent.LogService
	logger   consent.Logger
	clock    consent.Clock
	metrics  *Metrics
	limiter  *limiterPool
	proxies  []netip.Prefix
	engine   *gin.Engine
}

// NewServer builds the router. Call gin.SetMode before NewServer to change
// gin's own debug output.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = consent.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = consent.RealClock{}
	}

	s := &Server{
		settings: opts.Settings.WithDefaults(),
		service:  opts.Service,
		logger:   opts.Logger,
		clock:    opts.Clock,
		metrics:  NewMetrics(),
		limiter:  newLimiterPool(opts.RateRPS, opts.RateBurst),
	}

	var trusted []string
	for _, p := range opts.TrustedProxies {
		prefix, err := ParseTrustedProxy(p)
		if err != nil {
			s.logger.Warn("ignoring trusted proxy", "proxy", p, "error", err)
			continue
		}
		s.proxies = append(s.proxies, prefix)
		trusted = append(trusted, prefix.String())
	}

	r := gin.New()
	if err := r.SetTrustedProxies(trusted); err != nil {
		s.logger.Warn("setting trusted proxies", "error", err)
	}
	r.Use(gin.Recovery(), s.observe())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/consent", s.getConsent)
	api.POST("/consent/:action", s.postConsent)
	api.POST("/log", s.rateLimit(), s.postLog)
	api.GET("/stats", s.getStats)
	api.GET("/decisions", s.getDecisions)

	s.engine = r
	return s
}

// ParseTrustedProxy parses a proxy given as an IP address or CIDR range.
func ParseTrustedProxy(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("parsing proxy range %q: %w", s, err)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parsing proxy address %q: %w", s, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// fromTrustedProxy reports whether r's direct peer is a trusted proxy.
func (s *Server) fromTrustedProxy(r *http.Request) bool {
	if len(s.proxies) == 0 {
		return false
	}
	ap, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	addr := ap.Addr().Unmap()
	for _, p := range s.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.clock.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"route", route,
			"status", code,
			"latency", s.clock.Now().Sub(start).String())
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			s.metrics.rejected.WithLabelValues(reasonRateLimited).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
