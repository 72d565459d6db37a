package metadata

/*
Metadata Collected
- Fetch timestamps and status codes
- Link counts per page
- Frontier admissions
- Skip decisions (robots, scope)
- Failure diagnostics

Logging Goals
- Debuggable crawl behavior
- Post-run auditability

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Status codes
- Durations
- Identifiers (crawl ID, worker ID)
*/

type ErrorCause string

const (
	CauseConfigInvalid     ErrorCause = "config invalid"
	CauseFetchFailure      ErrorCause = "fetch failed"
	CauseRobotsUnavailable ErrorCause = "robots.txt unavailable"
	CauseStoreFailure      ErrorCause = "coordination store failure"
	CauseContentInvalid    ErrorCause = "content invalid"
	CauseUnknown           ErrorCause = "unknown"
)

type SkipReason string

const (
	SkipOffDomain      SkipReason = "off-domain"
	SkipRobotsDenied   SkipReason = "robots disallowed"
	SkipRetriableState SkipReason = "retriable status"
)

type AttrKey string

const (
	AttrURL     AttrKey = "url"
	AttrHost    AttrKey = "host"
	AttrStatus  AttrKey = "status"
	AttrMessage AttrKey = "message"
)

type Attribute struct {
	Key   AttrKey
	Value string
}

func NewAttr(key AttrKey, value string) Attribute {
	return Attribute{Key: key, Value: value}
}
