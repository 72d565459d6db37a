package frontier

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rohmanhakim/domain-crawler/internal/config"
)

// admitScript performs atomic admission: in one server-side execution,
// insert into Seen and, only when the insert was new, enqueue at the head
// of Pending. Both mutations succeed or fail together.
//
// KEYS[1] = queue (Pending list), KEYS[2] = visited (Seen set),
// ARGV[1] = the URL. A return value > 0 means newly admitted.
//
// go-redis caches the script's SHA and re-sends the body once when the
// server answers NOSCRIPT (for example after SCRIPT FLUSH).
var admitScript = redis.NewScript(`
if redis.call("SADD", KEYS[2], ARGV[1]) == 1 then
    return redis.call("LPUSH", KEYS[1], ARGV[1])
else
    return 0
end
`)

// RedisFrontier is the production Frontier, backed by a Redis list and
// set. The client's bounded connection pool is shared by all workers;
// each operation borrows a connection for a single round trip.
type RedisFrontier struct {
	client        *redis.Client
	queueKey      string
	visitedSetKey string
}

// NewRedisClient builds the shared Redis client for cfg's endpoint.
func NewRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		PoolSize: cfg.Concurrency() + 2,
	})
}

func NewRedisFrontier(client *redis.Client, queueKey, visitedSetKey string) *RedisFrontier {
	return &RedisFrontier{
		client:        client,
		queueKey:      queueKey,
		visitedSetKey: visitedSetKey,
	}
}

func (f *RedisFrontier) Push(ctx context.Context, rawURL string) (bool, error) {
	if rawURL == "" {
		return false, nil
	}

	admitted, err := admitScript.Run(
		ctx,
		f.client,
		[]string{f.queueKey, f.visitedSetKey},
		rawURL,
	).Int64()
	if err != nil {
		return false, &FrontierError{Message: err.Error(), Cause: ErrCauseScript}
	}
	return admitted > 0, nil
}

func (f *RedisFrontier) Pop(ctx context.Context) (string, error) {
	popped, err := f.client.RPop(ctx, f.queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", &FrontierError{Message: err.Error(), Cause: ErrCauseTransport}
	}
	return popped, nil
}

func (f *RedisFrontier) PopBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	reply, err := f.client.BRPop(ctx, timeout, f.queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", &FrontierError{Message: err.Error(), Cause: ErrCauseTransport}
	}
	// BRPOP replies [key, value]
	if len(reply) != 2 {
		return "", nil
	}
	return reply[1], nil
}

func (f *RedisFrontier) Size(ctx context.Context) (int64, error) {
	size, err := f.client.LLen(ctx, f.queueKey).Result()
	if err != nil {
		return 0, &FrontierError{Message: err.Error(), Cause: ErrCauseTransport}
	}
	return size, nil
}

func (f *RedisFrontier) HasSeen(ctx context.Context, rawURL string) (bool, error) {
	seen, err := f.client.SIsMember(ctx, f.visitedSetKey, rawURL).Result()
	if err != nil {
		return false, &FrontierError{Message: err.Error(), Cause: ErrCauseTransport}
	}
	return seen, nil
}

func (f *RedisFrontier) VisitedCount(ctx context.Context) (int64, error) {
	count, err := f.client.SCard(ctx, f.visitedSetKey).Result()
	if err != nil {
		return 0, &FrontierError{Message: err.Error(), Cause: ErrCauseTransport}
	}
	return count, nil
}

func (f *RedisFrontier) Clear(ctx context.Context) error {
	if err := f.client.Del(ctx, f.queueKey).Err(); err != nil {
		return &FrontierError{Message: err.Error(), Cause: ErrCauseTransport}
	}
	return nil
}

func (f *RedisFrontier) ClearAll(ctx context.Context) error {
	if err := f.client.Del(ctx, f.queueKey, f.visitedSetKey).Err(); err != nil {
		return &FrontierError{Message: err.Error(), Cause: ErrCauseTransport}
	}
	return nil
}

func (f *RedisFrontier) Close() error {
	return f.client.Close()
}
