package timeutil

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Backoff damps load against a struggling origin after a retriable
// failure. Wait runs the whole delay sequence in one call: sleep, double,
// sleep again, up to the attempt cap and the delay ceiling. The URL that
// triggered the backoff is not retried afterwards; the worker simply
// returns to its pop loop once the sequence completes.
type Backoff struct {
	param       BackoffParam
	jitter      time.Duration
	maxAttempts int
	sleeper     Sleeper

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewBackoff(
	param BackoffParam,
	jitter time.Duration,
	maxAttempts int,
	randomSeed int64,
	sleeper Sleeper,
) *Backoff {
	return &Backoff{
		param:       param,
		jitter:      jitter,
		maxAttempts: maxAttempts,
		sleeper:     sleeper,
		rng:         rand.New(rand.NewSource(randomSeed)),
	}
}

// Wait sleeps through the configured backoff sequence. It returns the
// number of completed sleeps; cancellation ends the sequence immediately.
func (b *Backoff) Wait(ctx context.Context) int {
	completed := 0
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		if !b.sleeper.Sleep(ctx, b.delayFor(attempt)) {
			return completed
		}
		completed++
	}
	return completed
}

func (b *Backoff) delayFor(attempt int) time.Duration {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return ExponentialBackoffDelay(attempt, b.jitter, b.rng, b.param)
}
