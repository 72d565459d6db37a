package fetcher

import (
	"context"

	"github.com/rohmanhakim/domain-crawler/pkg/failure"
)

/*
Responsibilities

- Perform the HTTP request for a page
- Apply headers and the per-page timeout
- Classify responses: success, retriable status, fatal
- Extract absolute outbound links from the HTML body

Fetch Semantics

- Only successful HTML responses are processed
- Non-HTML content is a fatal, per-URL failure
- Relative hrefs are resolved against the final request URL
- Statuses 429, 502, 503 and 504 are retriable; everything else fatal

The fetcher never decides what happens next; workers own retry,
backoff and admission.
*/

// LinkSet is the set of absolute URLs extracted from a page.
type LinkSet map[string]struct{}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (LinkSet, failure.ClassifiedError)
}
