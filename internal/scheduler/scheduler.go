package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rohmanhakim/domain-crawler/internal/config"
	"github.com/rohmanhakim/domain-crawler/internal/fetcher"
	"github.com/rohmanhakim/domain-crawler/internal/frontier"
	"github.com/rohmanhakim/domain-crawler/internal/metadata"
	"github.com/rohmanhakim/domain-crawler/internal/robots"
	"github.com/rohmanhakim/domain-crawler/internal/storage"
	"github.com/rohmanhakim/domain-crawler/pkg/timeutil"
	"github.com/rohmanhakim/domain-crawler/pkg/urlutil"
)

/*
 Scheduler is the control-plane authority of the crawl inside one process.

 It seeds the frontier, runs the worker pool, and decides when the crawl
 has drained. Workers never decide retry, continuation, or abortion on
 their own; they classify failures and return to the pop loop.

 Termination: a worker that finds the queue empty waits on a bounded
 blocking pop. When that also yields nothing and no sibling worker is
 mid-page, the frontier cannot grow again, so the pool drains. A final
 non-blocking pop closes the window between a producer's last push and
 its busy-counter decrement.

 Scheduler Responsibilities:
 - Coordinate crawl lifecycle
 - Propagate cancellation, bound the shutdown drain
 - Aggregate crawl statistics
*/

type Scheduler struct {
	cfg            config.Config
	crawlFrontier  frontier.Frontier
	htmlFetcher    fetcher.Fetcher
	robot          robots.Robot
	sink           storage.Sink
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	backoff        *timeutil.Backoff
	sleeper        timeutil.Sleeper

	seedHost    string
	busyWorkers atomic.Int64
	totalErrors atomic.Int64
}

// NewScheduler wires the production collaborators for cfg.
// The returned scheduler owns none of them; Close the frontier after use.
func NewScheduler(
	cfg config.Config,
	crawlFrontier frontier.Frontier,
	logger zerolog.Logger,
) *Scheduler {
	recorder := metadata.NewRecorder(logger, fmt.Sprintf("crawl-%d", time.Now().Unix()))
	htmlFetcher := fetcher.NewHtmlFetcher(&recorder, cfg.UserAgent(), cfg.Timeout())
	robot := robots.NewCachedRobot(&recorder, cfg.UserAgent(), cfg.RobotsTimeout())
	sleeper := timeutil.NewRealSleeper()
	backoff := timeutil.NewBackoff(
		timeutil.NewBackoffParam(cfg.BackoffBase(), 2.0, cfg.BackoffMax()),
		cfg.BackoffJitter(),
		cfg.BackoffRetries(),
		cfg.RandomSeed(),
		&sleeper,
	)
	return NewSchedulerWithDeps(
		cfg,
		crawlFrontier,
		&htmlFetcher,
		robot,
		storage.NewStdoutSink(),
		&recorder,
		&recorder,
		backoff,
		&sleeper,
	)
}

// NewSchedulerWithDeps creates a Scheduler with injected dependencies.
// Tests use this constructor to substitute mock collaborators.
func NewSchedulerWithDeps(
	cfg config.Config,
	crawlFrontier frontier.Frontier,
	htmlFetcher fetcher.Fetcher,
	robot robots.Robot,
	sink storage.Sink,
	metadataSink metadata.MetadataSink,
	crawlFinalizer metadata.CrawlFinalizer,
	backoff *timeutil.Backoff,
	sleeper timeutil.Sleeper,
) *Scheduler {
	return &Scheduler{
		cfg:            cfg,
		crawlFrontier:  crawlFrontier,
		htmlFetcher:    htmlFetcher,
		robot:          robot,
		sink:           sink,
		metadataSink:   metadataSink,
		crawlFinalizer: crawlFinalizer,
		backoff:        backoff,
		sleeper:        sleeper,
		seedHost:       urlutil.Host(cfg.StartURL()),
	}
}

// ExecuteCrawling seeds the frontier and runs the worker pool until the
// frontier drains or ctx is cancelled. Cancellation triggers a drain
// bounded by the configured shutdown timeout.
func (s *Scheduler) ExecuteCrawling(ctx context.Context) (CrawlingExecution, error) {
	crawlStartTime := time.Now()

	if s.seedHost == "" {
		return CrawlingExecution{}, fmt.Errorf("start URL %q has no host", s.cfg.StartURL())
	}

	admitted, err := s.crawlFrontier.Push(ctx, s.cfg.StartURL())
	if err != nil {
		// a seed that cannot be admitted means no crawl at all
		return CrawlingExecution{}, err
	}
	// admitted == false is fine: a previous run already admitted the seed
	s.metadataSink.RecordAdmission(s.cfg.StartURL(), admitted)

	workerGroup, workerCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Concurrency(); i++ {
		workerGroup.Go(func() error {
			return s.runWorker(workerCtx)
		})
	}

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- workerGroup.Wait()
	}()

	select {
	case <-waitDone:
		// clean drain
	case <-ctx.Done():
		// cancelled: give in-flight pages a bounded window to finish
		select {
		case <-waitDone:
		case <-time.After(s.cfg.ShutdownTimeout()):
		}
	}

	execution := s.finalize(crawlStartTime)
	return execution, nil
}

func (s *Scheduler) finalize(crawlStartTime time.Time) CrawlingExecution {
	// the crawl context may already be cancelled; stats still matter
	statsCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pagesVisited, err := s.crawlFrontier.VisitedCount(statsCtx)
	if err != nil {
		pagesVisited = 0
	}
	duration := time.Since(crawlStartTime)
	s.crawlFinalizer.RecordFinalCrawlStats(int(pagesVisited), int(s.totalErrors.Load()), duration)
	return NewCrawlingExecution(pagesVisited, s.totalErrors.Load(), duration)
}
