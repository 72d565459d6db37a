package scheduler

import "time"

// CrawlingExecution summarizes one finished crawl.
type CrawlingExecution struct {
	pagesVisited int64
	totalErrors  int64
	duration     time.Duration
}

func NewCrawlingExecution(
	pagesVisited int64,
	totalErrors int64,
	duration time.Duration,
) CrawlingExecution {
	return CrawlingExecution{
		pagesVisited: pagesVisited,
		totalErrors:  totalErrors,
		duration:     duration,
	}
}

func (c *CrawlingExecution) PagesVisited() int64 {
	return c.pagesVisited
}

func (c *CrawlingExecution) TotalErrors() int64 {
	return c.totalErrors
}

func (c *CrawlingExecution) Duration() time.Duration {
	return c.duration
}
