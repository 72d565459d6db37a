package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rohmanhakim/domain-crawler/internal/fetcher"
)

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// The crawl admits same-domain links, including subdomains, and never
// admits off-domain ones.
func TestExecuteCrawling_SameDomainFilter(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 1, allowAllRobot())

	harness.fetcher.OnFetch(start, linkSet(
		"https://monzo.com/careers",
		"https://evil.com/",
		"https://api.monzo.com/docs",
	), nil)
	harness.fetcher.OnFetch("https://monzo.com/careers", linkSet(), nil)
	harness.fetcher.OnFetch("https://api.monzo.com/docs", linkSet(), nil)

	execution, err := sched.ExecuteCrawling(context.Background())
	if err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	pushes := harness.frontier.PushCalls()
	if !contains(pushes, "https://monzo.com/careers") {
		t.Error("expected push for same-domain link")
	}
	if !contains(pushes, "https://api.monzo.com/docs") {
		t.Error("expected push for subdomain link")
	}
	if contains(pushes, "https://evil.com/") {
		t.Error("off-domain link must never be pushed")
	}

	if execution.PagesVisited() != 3 {
		t.Errorf("expected 3 visited pages, got %d", execution.PagesVisited())
	}
	harness.fetcher.AssertExpectations(t)
}

// The start page's record lists its filtered links in ascending order.
func TestExecuteCrawling_EmitsSortedRecord(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 1, allowAllRobot())

	harness.fetcher.OnFetch(start, linkSet(
		"https://monzo.com/zebra",
		"https://monzo.com/alpha",
	), nil)
	harness.fetcher.OnFetch(mock.Anything, linkSet(), nil)

	if _, err := sched.ExecuteCrawling(context.Background()); err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	records := harness.sink.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	var startLinks []string
	for _, record := range records {
		if record.PageURL() == start {
			startLinks = record.Links()
		}
	}
	if len(startLinks) != 2 ||
		startLinks[0] != "https://monzo.com/alpha" ||
		startLinks[1] != "https://monzo.com/zebra" {
		t.Errorf("expected ascending links, got %v", startLinks)
	}
}

// Robots denying everything yields no fetches, no pushes beyond the
// seed, and no emissions.
func TestExecuteCrawling_RobotsDisallowAll(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 1, denyAllRobot())

	if _, err := sched.ExecuteCrawling(context.Background()); err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	if records := harness.sink.Records(); len(records) != 0 {
		t.Errorf("expected zero emissions, got %d", len(records))
	}
	pushes := harness.frontier.PushCalls()
	if len(pushes) != 1 || pushes[0] != start {
		t.Errorf("expected only the seed push, got %v", pushes)
	}
	harness.fetcher.AssertNotCalled(t, "Fetch", mock.Anything)
}

// Robots denying a subset filters those links before admission.
func TestExecuteCrawling_RobotsDisallowSome(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 1, denySuffixRobot("/disallowed"))

	harness.fetcher.OnFetch(start, linkSet(
		"https://monzo.com/allowed",
		"https://monzo.com/disallowed",
	), nil)
	harness.fetcher.OnFetch("https://monzo.com/allowed", linkSet(), nil)

	if _, err := sched.ExecuteCrawling(context.Background()); err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	pushes := harness.frontier.PushCalls()
	if !contains(pushes, "https://monzo.com/allowed") {
		t.Error("expected push for allowed link")
	}
	if contains(pushes, "https://monzo.com/disallowed") {
		t.Error("disallowed link must not be pushed")
	}
}

// A retriable status drops the URL, runs the backoff sequence once, and
// the crawl drains.
func TestExecuteCrawling_RetriableFailure(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 1, allowAllRobot())

	harness.fetcher.OnFetch(start, nil, &fetcher.FetchError{
		Message:    "status 429",
		Retryable:  true,
		StatusCode: 429,
		Cause:      fetcher.ErrCauseRetriableStatus,
	})

	execution, err := sched.ExecuteCrawling(context.Background())
	if err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	pushes := harness.frontier.PushCalls()
	if len(pushes) != 1 {
		t.Errorf("expected only the seed push, got %v", pushes)
	}
	if records := harness.sink.Records(); len(records) != 0 {
		t.Errorf("expected zero emissions, got %d", len(records))
	}
	// backoff base 1ms doubling to max 4ms with 2 retries: two sleeps
	if got := harness.sleeper.Count(); got != 2 {
		t.Errorf("expected 2 backoff sleeps, got %d", got)
	}
	if execution.TotalErrors() != 1 {
		t.Errorf("expected 1 recorded error, got %d", execution.TotalErrors())
	}
	harness.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

// A fatal fetch failure drops the URL without backoff.
func TestExecuteCrawling_FatalFailure(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 1, allowAllRobot())

	harness.fetcher.OnFetch(start, nil, &fetcher.FetchError{
		Message:    "status 404",
		Retryable:  false,
		StatusCode: 404,
		Cause:      fetcher.ErrCauseUnexpectedStatus,
	})

	execution, err := sched.ExecuteCrawling(context.Background())
	if err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	if got := harness.sleeper.Count(); got != 0 {
		t.Errorf("fatal failure must not trigger backoff, got %d sleeps", got)
	}
	if execution.TotalErrors() != 1 {
		t.Errorf("expected 1 recorded error, got %d", execution.TotalErrors())
	}
}

// A page with zero same-domain links drains immediately: one emission,
// clean exit.
func TestExecuteCrawling_Drain(t *testing.T) {
	const start = "https://monzo.com/lonely"
	harness, sched := newHarness(t, start, 1, allowAllRobot())

	harness.fetcher.OnFetch(start, linkSet("https://elsewhere.example/"), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := sched.ExecuteCrawling(context.Background()); err != nil {
			t.Errorf("ExecuteCrawling: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("crawl did not drain within the deadline")
	}

	records := harness.sink.Records()
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 emission, got %d", len(records))
	}
	if len(records[0].Links()) != 0 {
		t.Errorf("expected no same-domain links, got %v", records[0].Links())
	}
}

// Multiple workers drain a multi-page site exactly once per page.
func TestExecuteCrawling_MultipleWorkers(t *testing.T) {
	const start = "https://monzo.com/"
	harness, sched := newHarness(t, start, 4, allowAllRobot())

	pages := []string{
		"https://monzo.com/a",
		"https://monzo.com/b",
		"https://monzo.com/c",
		"https://monzo.com/d",
		"https://monzo.com/e",
	}
	harness.fetcher.OnFetch(start, linkSet(pages...), nil)
	for _, page := range pages {
		// every page links back to the start and to a sibling: duplicates
		// must not produce second visits
		harness.fetcher.OnFetch(page, linkSet(start, pages[0]), nil)
	}

	execution, err := sched.ExecuteCrawling(context.Background())
	if err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	if execution.PagesVisited() != int64(len(pages))+1 {
		t.Errorf("expected %d visited pages, got %d", len(pages)+1, execution.PagesVisited())
	}
	records := harness.sink.Records()
	if len(records) != len(pages)+1 {
		t.Errorf("expected %d emissions, got %d", len(pages)+1, len(records))
	}
	seen := make(map[string]int)
	for _, record := range records {
		seen[record.PageURL()]++
	}
	for page, visits := range seen {
		if visits != 1 {
			t.Errorf("page %q emitted %d times", page, visits)
		}
	}
	harness.fetcher.AssertNumberOfCalls(t, "Fetch", len(pages)+1)
}

// Cancellation before the crawl starts stops it without visiting pages.
func TestExecuteCrawling_PreCancelled(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 2, allowAllRobot())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.ExecuteCrawling(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled crawl did not return within the deadline")
	}

	if records := harness.sink.Records(); len(records) != 0 {
		t.Errorf("expected no emissions after pre-cancellation, got %d", len(records))
	}
}

// An already-seen seed is not an error; the crawl still drains.
func TestExecuteCrawling_SeedAlreadyAdmitted(t *testing.T) {
	const start = "https://monzo.com/home"
	harness, sched := newHarness(t, start, 1, allowAllRobot())

	// a previous run admitted and crawled the seed
	if _, err := harness.frontier.Push(context.Background(), start); err != nil {
		t.Fatalf("pre-push: %v", err)
	}
	if _, err := harness.frontier.Pop(context.Background()); err != nil {
		t.Fatalf("pre-pop: %v", err)
	}

	if _, err := sched.ExecuteCrawling(context.Background()); err != nil {
		t.Fatalf("ExecuteCrawling: %v", err)
	}

	// nothing pending, nothing fetched
	harness.fetcher.AssertNotCalled(t, "Fetch", mock.Anything)
}
