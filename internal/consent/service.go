package consent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LogService is the orchestration layer behind the decision-logging
// endpoint and the dashboard statistics.
type LogService struct {
	log    DecisionLog
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

var _ Reporter = (*LogService)(nil)

// NewLogService creates a LogService with the provided dependencies.
func NewLogService(log DecisionLog, logger Logger, clock Clock, idgen IDGenerator) *LogService {
	return &LogService{
		log:    log,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// Record validates a decision report and stores it.
func (s *LogService) Record(ctx context.Context, r Report) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := ParseType(string(r.Consent))
	if !ok {
		return nil, fmt.Errorf("invalid consent type: %q", r.Consent)
	}

	d := &Decision{
		ID:            s.idgen.New(),
		Type:          t,
		Categories:    splitSlugs(r.Categories),
		ConfigVersion: strings.TrimSpace(r.ConfigVersion),
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.log.InsertDecision(d); err != nil {
		return nil, fmt.Errorf("storing decision: %w", err)
	}

	s.logger.Info("decision logged", "id", d.ID, "consent", string(d.Type), "version", d.ConfigVersion)
	return d, nil
}

// Report stores r, letting an in-process host log decisions directly.
func (s *LogService) Report(ctx context.Context, r Report) error {
	_, err := s.Record(ctx, r)
	return err
}

// History returns the most recent decisions, newest first.
func (s *LogService) History(limit int) ([]*Decision, error) {
	ds, err := s.log.ListDecisions(limit)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	return ds, nil
}

// Stats summarizes decisions over a trailing window.
type Stats struct {
	Since      time.Time        `json:"since"`
	Total      int64            `json:"total"`
	ByType     map[Type]int64   `json:"by_type"`
	Categories map[string]int64 `json:"categories"`
	// AcceptRate is the share of decisions with type full, in [0,1].
	AcceptRate float64 `json:"accept_rate"`
}

// Stats returns totals for the last days days.
func (s *LogService) Stats(days int) (*Stats, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	since := s.clock.Now().UTC().AddDate(0, 0, -days)

	byType, err := s.log.CountByType(since)
	if err != nil {
		return nil, fmt.Errorf("counting decisions by type: %w", err)
	}
	cats, err := s.log.CountCategories(since)
	if err != nil {
		return nil, fmt.Errorf("counting granted categories: %w", err)
	}

	st := &Stats{
		Since:      since,
		ByType:     map[Type]int64{TypeFull: 0, TypePartial: 0, TypeNone: 0},
		Categories: cats,
	}
	for t, n := range byType {
		st.ByType[t] = n
		st.Total += n
	}
	if st.Total > 0 {
		st.AcceptRate = float64(st.ByType[TypeFull]) / float64(st.Total)
	}
	return st, nil
}

// Purge deletes decisions older than retentionDays.
func (s *LogService) Purge(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %d days", retentionDays)
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -retentionDays)
	n, err := s.log.DeleteDecisionsBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging decisions: %w", err)
	}
	s.logger.Info("decisions purged", "count", n, "before", cutoff.Format(time.RFC3339))
	return n, nil
}

// splitSlugs parses a comma-joined slug list, dropping blanks and duplicates.
func splitSlugs(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, ",") {
		slug := strings.TrimSpace(part)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
