package app

import (
	"fmt"

	"consent-go/internal/consent"
)

// Run statuses recorded in the operations table.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// tracked records a maintenance run in the operation log: the row is created
// before fn runs and finished with its outcome. A failure to finish the row
// is only logged so fn's result is never masked.
func tracked(log consent.OperationLog, logger consent.Logger, operation, parameters string, fn func() error) error {
	op, err := log.CreateOperation(operation, parameters)
	if err != nil {
		return fmt.Errorf("recording %s: %w", operation, err)
	}

	runErr := fn()
	status := StatusSuccess
	if runErr != nil {
		status = StatusError
	}
	if err := log.FinishOperation(op.ID, status); err != nil {
		logger.Warn("operation not finished", "operation", operation, "id", op.ID, "error", err)
	}
	return runErr
}
