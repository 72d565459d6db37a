package frontier

import (
	"fmt"

	"github.com/rohmanhakim/domain-crawler/pkg/failure"
)

type FrontierErrorCause string

const (
	ErrCauseTransport FrontierErrorCause = "coordination store transport failure"
	ErrCauseScript    FrontierErrorCause = "admission script failure"
)

// FrontierError is a transient coordination-store failure. The store never
// retries internally; workers treat the operation as not-performed and
// move on.
type FrontierError struct {
	Message string
	Cause   FrontierErrorCause
}

func (e *FrontierError) Error() string {
	return fmt.Sprintf("frontier error: %s: %s", e.Cause, e.Message)
}

func (e *FrontierError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
