package consent

import "time"

// Operation is a recorded maintenance run (archive, purge) against the
// decision log.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// OperationLog records maintenance runs next to the decisions they touch.
type OperationLog interface {
	// CreateOperation records the start of an operation and assigns its ID.
	CreateOperation(operation, parameters string) (*Operation, error)

	// FinishOperation stamps the end time and final status.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// MaxOperationID returns the highest operation ID, or 0 if none exist.
	MaxOperationID() (int64, error)
}
