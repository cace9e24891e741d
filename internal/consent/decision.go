package consent

import "time"

// Decision is one logged consent decision as stored by the decision log.
type Decision struct {
	ID            string
	Type          Type
	Categories    []string
	ConfigVersion string
	CreatedAt     time.Time
}

// DecisionLog provides an interface for decision storage.
type DecisionLog interface {
	// InsertDecision stores a new decision.
	InsertDecision(d *Decision) error

	// ListDecisions returns the most recent decisions, newest first.
	ListDecisions(limit int) ([]*Decision, error)

	// CountByType returns the number of decisions per aggregate type
	// created at or after since.
	CountByType(since time.Time) (map[Type]int64, error)

	// CountCategories returns, per category slug, how many decisions
	// created at or after since granted it.
	CountCategories(since time.Time) (map[string]int64, error)

	// DeleteDecisionsBefore removes decisions created before t and returns
	// how many were removed.
	DeleteDecisionsBefore(t time.Time) (int64, error)

	// Close closes the underlying storage.
	Close() error
}
