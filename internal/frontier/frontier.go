package frontier

import (
	"context"
	"time"
)

/*
Frontier Responsibilities
- Deduplicate URLs across every worker in every process
- Hand each pending URL to exactly one worker
- Track the historical set of admitted URLs
- Knows nothing about:
	- fetching
	- robots.txt
	- link extraction
	- output

It is shared crawl state behind atomic operations, not a pipeline executor.

Two conceptual sets partition URLs:
- Seen: every URL ever admitted. Monotonic for the lifetime of the store.
- Pending: admitted but not yet dequeued. Pending is always a subset of Seen.
*/

// Frontier is the distributed crawl frontier. All operations are safe for
// concurrent use from any number of workers and processes.
type Frontier interface {
	// Push admits rawURL when it has never been seen. It returns true only
	// for the single caller, across all processes, that admitted the URL.
	// Empty input returns false without touching the store.
	Push(ctx context.Context, rawURL string) (bool, error)

	// Pop removes and returns one pending URL, or "" when the queue is
	// empty. Non-blocking; exactly one caller receives any given element.
	Pop(ctx context.Context) (string, error)

	// PopBlocking waits up to timeout for a pending URL, returning "" on
	// timeout. Used for graceful drain detection.
	PopBlocking(ctx context.Context, timeout time.Duration) (string, error)

	// Size reports the number of pending URLs. Approximate under
	// contention.
	Size(ctx context.Context) (int64, error)

	// HasSeen reports whether rawURL was ever admitted.
	HasSeen(ctx context.Context, rawURL string) (bool, error)

	// VisitedCount reports the cardinality of the Seen set.
	VisitedCount(ctx context.Context) (int64, error)

	// Clear empties Pending but keeps Seen. Useful for a forced drain.
	Clear(ctx context.Context) error

	// ClearAll empties both Pending and Seen.
	ClearAll(ctx context.Context) error

	// Close releases the store's connections.
	Close() error
}
