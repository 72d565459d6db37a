package fetcher

import (
	"fmt"
	"net/http"

	"github.com/rohmanhakim/domain-crawler/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseInvalidURL         FetchErrorCause = "malformed URL"
	ErrCauseNetworkFailure     FetchErrorCause = "network failure"
	ErrCauseRetriableStatus    FetchErrorCause = "retriable status"
	ErrCauseUnexpectedStatus   FetchErrorCause = "unexpected status"
	ErrCauseContentTypeInvalid FetchErrorCause = "non-HTML content"
	ErrCauseBodyParseError     FetchErrorCause = "failed to parse response body"
)

type FetchError struct {
	Message    string
	Retryable  bool
	StatusCode int
	Cause      FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error should trigger backoff
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// IsRetriableStatus reports whether an HTTP status signals a struggling
// origin that deserves backoff rather than a permanent drop.
func IsRetriableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
