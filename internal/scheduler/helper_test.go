package scheduler_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/rohmanhakim/domain-crawler/internal/config"
	"github.com/rohmanhakim/domain-crawler/internal/fetcher"
	"github.com/rohmanhakim/domain-crawler/internal/metadata"
	"github.com/rohmanhakim/domain-crawler/internal/scheduler"
	"github.com/rohmanhakim/domain-crawler/internal/storage"
	"github.com/rohmanhakim/domain-crawler/pkg/failure"
	"github.com/rohmanhakim/domain-crawler/pkg/timeutil"
)

// memoryFrontier is an in-process Frontier with the production admission
// semantics: atomic admit-if-unseen, exactly-once delivery.
type memoryFrontier struct {
	mu        sync.Mutex
	queue     []string
	seen      map[string]struct{}
	pushCalls []string
}

func newMemoryFrontier() *memoryFrontier {
	return &memoryFrontier{seen: make(map[string]struct{})}
}

func (f *memoryFrontier) Push(_ context.Context, rawURL string) (bool, error) {
	if rawURL == "" {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls = append(f.pushCalls, rawURL)
	if _, exists := f.seen[rawURL]; exists {
		return false, nil
	}
	f.seen[rawURL] = struct{}{}
	f.queue = append([]string{rawURL}, f.queue...)
	return true, nil
}

func (f *memoryFrontier) Pop(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return "", nil
	}
	last := f.queue[len(f.queue)-1]
	f.queue = f.queue[:len(f.queue)-1]
	return last, nil
}

func (f *memoryFrontier) PopBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if popped, _ := f.Pop(ctx); popped != "" {
			return popped, nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return "", nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *memoryFrontier) Size(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.queue)), nil
}

func (f *memoryFrontier) HasSeen(_ context.Context, rawURL string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.seen[rawURL]
	return exists, nil
}

func (f *memoryFrontier) VisitedCount(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.seen)), nil
}

func (f *memoryFrontier) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	return nil
}

func (f *memoryFrontier) ClearAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	f.seen = make(map[string]struct{})
	return nil
}

func (f *memoryFrontier) Close() error { return nil }

// PushCalls returns every Push argument in call order.
func (f *memoryFrontier) PushCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]string, len(f.pushCalls))
	copy(calls, f.pushCalls)
	return calls
}

// fetcherMock is a testify mock for the page fetcher.
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) Fetch(_ context.Context, rawURL string) (fetcher.LinkSet, failure.ClassifiedError) {
	args := f.Called(rawURL)

	var links fetcher.LinkSet
	if v := args.Get(0); v != nil {
		links = v.(fetcher.LinkSet)
	}
	var classified failure.ClassifiedError
	if v := args.Get(1); v != nil {
		classified = v.(failure.ClassifiedError)
	}
	return links, classified
}

// OnFetch sets up the mock for one URL. Use mock.Anything to match all.
func (f *fetcherMock) OnFetch(rawURL interface{}, links fetcher.LinkSet, err failure.ClassifiedError) *mock.Call {
	return f.On("Fetch", rawURL).Return(links, err)
}

func linkSet(urls ...string) fetcher.LinkSet {
	set := make(fetcher.LinkSet, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set
}

// robotFunc adapts a predicate into the Robot interface.
type robotFunc func(rawURL string) bool

func (r robotFunc) IsAllowed(_ context.Context, rawURL string) bool {
	return r(rawURL)
}

func allowAllRobot() robotFunc {
	return func(string) bool { return true }
}

func denyAllRobot() robotFunc {
	return func(string) bool { return false }
}

func denySuffixRobot(suffix string) robotFunc {
	return func(rawURL string) bool { return !strings.HasSuffix(rawURL, suffix) }
}

// recordingSink captures every emitted page record.
type recordingSink struct {
	mu      sync.Mutex
	records []storage.PageRecord
}

func (s *recordingSink) Write(record storage.PageRecord) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) Records() []storage.PageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]storage.PageRecord, len(s.records))
	copy(records, s.records)
	return records
}

// countingSleeper completes every sleep instantly, recording how many
// were requested. Backoff durations then cost no wall-clock time.
type countingSleeper struct {
	mu    sync.Mutex
	count int
}

func (s *countingSleeper) Sleep(ctx context.Context, _ time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return true
}

func (s *countingSleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type testHarness struct {
	cfg      config.Config
	frontier *memoryFrontier
	fetcher  *fetcherMock
	sink     *recordingSink
	sleeper  *countingSleeper
}

func newTestConfig(t *testing.T, startURL string, concurrency int) config.Config {
	t.Helper()
	cfg, err := config.WithDefault(startURL).
		WithConcurrency(concurrency).
		WithBrpopTimeout(20 * time.Millisecond).
		WithBackoffBase(time.Millisecond).
		WithBackoffMax(4 * time.Millisecond).
		WithBackoffJitter(0).
		WithBackoffRetries(2).
		WithShutdownTimeout(time.Second).
		Build()
	if err != nil {
		t.Fatalf("building test config: %v", err)
	}
	return cfg
}

func newHarness(t *testing.T, startURL string, concurrency int, robot robotFunc) (*testHarness, *scheduler.Scheduler) {
	t.Helper()

	cfg := newTestConfig(t, startURL, concurrency)
	harness := &testHarness{
		cfg:      cfg,
		frontier: newMemoryFrontier(),
		fetcher:  &fetcherMock{},
		sink:     &recordingSink{},
		sleeper:  &countingSleeper{},
	}

	recorder := metadata.NewRecorder(zerolog.Nop(), "test")
	backoff := timeutil.NewBackoff(
		timeutil.NewBackoffParam(cfg.BackoffBase(), 2.0, cfg.BackoffMax()),
		cfg.BackoffJitter(),
		cfg.BackoffRetries(),
		1,
		harness.sleeper,
	)

	sched := scheduler.NewSchedulerWithDeps(
		cfg,
		harness.frontier,
		harness.fetcher,
		robot,
		harness.sink,
		&recorder,
		&recorder,
		backoff,
		harness.sleeper,
	)
	return harness, sched
}
