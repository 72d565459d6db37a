package robots

import "context"

/*
Responsibilities

- Fetch robots.txt per host, at most once per process
- Cache parsed rules for the process lifetime
- Decide allow/deny for a URL under the crawler's user-agent token

Rules are immutable after install and never evicted. When robots.txt
cannot be obtained, the host is recorded as unknown and treated as
allow-all (fail-open).
*/

// Robot answers whether a URL may be crawled.
type Robot interface {
	// IsAllowed reports whether rawURL may be fetched. A URL with no
	// parseable host is never allowed.
	IsAllowed(ctx context.Context, rawURL string) bool
}
