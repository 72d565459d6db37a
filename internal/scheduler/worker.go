package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/rohmanhakim/domain-crawler/internal/fetcher"
	"github.com/rohmanhakim/domain-crawler/internal/metadata"
	"github.com/rohmanhakim/domain-crawler/internal/storage"
	"github.com/rohmanhakim/domain-crawler/pkg/failure"
	"github.com/rohmanhakim/domain-crawler/pkg/urlutil"
)

// runWorker is one worker's pop loop. It exits when cancellation arrives
// or when the frontier has drained: the bounded blocking pop yielded
// nothing while no sibling worker was processing a page.
func (s *Scheduler) runWorker(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		nextURL, err := s.crawlFrontier.Pop(ctx)
		if err != nil {
			s.recordStoreError("Frontier.Pop", err)
			// throttle so a dead store does not spin the pool
			s.sleeper.Sleep(ctx, s.cfg.BrpopTimeout())
			continue
		}

		if nextURL == "" {
			nextURL, err = s.crawlFrontier.PopBlocking(ctx, s.cfg.BrpopTimeout())
			if err != nil {
				s.recordStoreError("Frontier.PopBlocking", err)
				s.sleeper.Sleep(ctx, s.cfg.BrpopTimeout())
				continue
			}
			if nextURL == "" {
				if s.busyWorkers.Load() > 0 {
					continue
				}
				// a producer may have pushed its last links just before
				// decrementing the busy counter; look one more time
				nextURL, err = s.crawlFrontier.Pop(ctx)
				if err != nil || nextURL == "" {
					return nil
				}
			}
		}

		s.busyWorkers.Add(1)
		s.crawlPage(ctx, nextURL)
		s.busyWorkers.Add(-1)
	}
}

// crawlPage runs the per-URL lifecycle: domain gate, robots gate, fetch,
// pre-admission filter, emit, push.
func (s *Scheduler) crawlPage(ctx context.Context, pageURL string) {
	pageHost := urlutil.Host(pageURL)
	if !urlutil.SameDomain(s.seedHost, pageHost) {
		// the frontier should never contain off-domain URLs; this gate is
		// defence in depth
		s.metadataSink.RecordSkip(pageURL, metadata.SkipOffDomain)
		return
	}

	if !s.robot.IsAllowed(ctx, pageURL) {
		s.metadataSink.RecordSkip(pageURL, metadata.SkipRobotsDenied)
		return
	}

	links, fetchFailure := s.htmlFetcher.Fetch(ctx, pageURL)
	if fetchFailure != nil {
		s.handleFetchFailure(ctx, pageURL, fetchFailure)
		return
	}

	filtered := s.filterLinks(ctx, links)

	if sinkErr := s.sink.Write(storage.NewPageRecord(pageURL, filtered)); sinkErr != nil {
		s.totalErrors.Add(1)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"Sink.Write",
			metadata.CauseUnknown,
			sinkErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, pageURL),
			},
		)
	}

	for _, link := range filtered {
		admitted, pushErr := s.crawlFrontier.Push(ctx, link)
		if pushErr != nil {
			// the link is treated as not-pushed; a later page that links
			// to it may still admit it
			s.recordStoreError("Frontier.Push", pushErr)
			continue
		}
		s.metadataSink.RecordAdmission(link, admitted)
	}
}

// filterLinks applies the pre-admission filter: same registrable domain
// and robots-allowed. The frontier's push remains the final cross-process
// deduplication.
func (s *Scheduler) filterLinks(ctx context.Context, links fetcher.LinkSet) []string {
	filtered := make([]string, 0, len(links))
	for link := range links {
		if !urlutil.SameDomain(s.seedHost, urlutil.Host(link)) {
			continue
		}
		if !s.robot.IsAllowed(ctx, link) {
			continue
		}
		filtered = append(filtered, link)
	}
	sort.Strings(filtered)
	return filtered
}

func (s *Scheduler) handleFetchFailure(ctx context.Context, pageURL string, fetchFailure failure.ClassifiedError) {
	s.totalErrors.Add(1)

	if failure.IsRecoverable(fetchFailure) {
		s.metadataSink.RecordSkip(pageURL, metadata.SkipRetriableState)
		// damp load on the struggling origin before the next pop; the
		// URL itself is dropped, not requeued
		s.backoff.Wait(ctx)
		return
	}

	s.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		"Fetcher.Fetch",
		metadata.CauseFetchFailure,
		fetchFailure.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, pageURL),
		},
	)
}

func (s *Scheduler) recordStoreError(operation string, err error) {
	s.totalErrors.Add(1)
	s.metadataSink.RecordError(
		time.Now(),
		"frontier",
		operation,
		metadata.CauseStoreFailure,
		err.Error(),
		nil,
	)
}
