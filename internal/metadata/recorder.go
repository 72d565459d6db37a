package metadata

import (
	"time"

	"github.com/rs/zerolog"
)

// MetadataSink receives observational crawl events.
//
// Emission is observational only and MUST NOT influence scheduling,
// retries, or crawl termination.
type MetadataSink interface {
	RecordFetch(pageURL string, statusCode int, duration time.Duration, linkCount int)
	RecordAdmission(pageURL string, admitted bool)
	RecordSkip(pageURL string, reason SkipReason)
	RecordError(
		at time.Time,
		component string,
		operation string,
		cause ErrorCause,
		message string,
		attrs []Attribute,
	)
}

// CrawlFinalizer records the terminal crawl summary once, after drain.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(pagesVisited int, totalErrors int, duration time.Duration)
}

// Recorder implements MetadataSink and CrawlFinalizer over an injected
// zerolog logger. One recorder serves a whole process; events carry the
// crawl ID so multi-process runs can be correlated.
type Recorder struct {
	logger  zerolog.Logger
	crawlID string
}

func NewRecorder(logger zerolog.Logger, crawlID string) Recorder {
	return Recorder{
		logger:  logger.With().Str("crawl_id", crawlID).Logger(),
		crawlID: crawlID,
	}
}

func (r *Recorder) RecordFetch(pageURL string, statusCode int, duration time.Duration, linkCount int) {
	r.logger.Debug().
		Str("url", pageURL).
		Int("status", statusCode).
		Dur("duration", duration).
		Int("links", linkCount).
		Msg("page fetched")
}

func (r *Recorder) RecordAdmission(pageURL string, admitted bool) {
	r.logger.Debug().
		Str("url", pageURL).
		Bool("admitted", admitted).
		Msg("frontier push")
}

func (r *Recorder) RecordSkip(pageURL string, reason SkipReason) {
	event := r.logger.Info()
	if reason == SkipOffDomain {
		// off-domain URLs should never have entered the frontier
		event = r.logger.Warn()
	}
	event.
		Str("url", pageURL).
		Str("reason", string(reason)).
		Msg("url skipped")
}

func (r *Recorder) RecordError(
	at time.Time,
	component string,
	operation string,
	cause ErrorCause,
	message string,
	attrs []Attribute,
) {
	logEvent := r.logger.Error()
	if cause == CauseRobotsUnavailable {
		// fail-open is expected operation, not a crawl defect
		logEvent = r.logger.Warn()
	}
	event := logEvent.
		Time("at", at).
		Str("component", component).
		Str("operation", operation).
		Str("cause", string(cause))
	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}
	event.Msg(message)
}

func (r *Recorder) RecordFinalCrawlStats(pagesVisited int, totalErrors int, duration time.Duration) {
	r.logger.Info().
		Int("pages_visited", pagesVisited).
		Int("errors", totalErrors).
		Dur("duration", duration).
		Msg("crawl finished")
}
