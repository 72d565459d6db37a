package robots

import (
	"fmt"

	"github.com/rohmanhakim/domain-crawler/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseHTTPFetchFailure RobotsErrorCause = "robots.txt fetch failed"
	ErrCauseServerError      RobotsErrorCause = "robots.txt server error"
	ErrCauseParseError       RobotsErrorCause = "robots.txt parse error"
)

// RobotsError describes why a host's rules could not be obtained.
// It never blocks crawling: the caller caches the unknown sentinel and
// fails open.
type RobotsError struct {
	Message string
	Host    string
	Cause   RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
