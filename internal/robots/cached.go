package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/rohmanhakim/domain-crawler/internal/metadata"
	"github.com/rohmanhakim/domain-crawler/pkg/urlutil"
)

// robots.txt bodies beyond this size are truncated before parsing
const maxRobotsBody = 500 * 1024

// hostRules is one immutable cache entry. A nil data means the host's
// robots.txt could not be obtained or held no parseable rules; such hosts
// are allow-all.
type hostRules struct {
	data *robotstxt.RobotsData
}

// CachedRobot is the per-process robots.txt authority. A cold host is
// fetched exactly once even under concurrent queries; the installed rules
// then serve every worker for the rest of the process.
type CachedRobot struct {
	httpClient   *http.Client
	userAgent    string
	metadataSink metadata.MetadataSink

	group singleflight.Group
	mu    sync.RWMutex
	rules map[string]*hostRules
}

func NewCachedRobot(
	metadataSink metadata.MetadataSink,
	userAgent string,
	fetchTimeout time.Duration,
) *CachedRobot {
	return NewCachedRobotWithClient(
		metadataSink,
		userAgent,
		&http.Client{Timeout: fetchTimeout},
	)
}

// NewCachedRobotWithClient substitutes the HTTP client; useful for tests.
func NewCachedRobotWithClient(
	metadataSink metadata.MetadataSink,
	userAgent string,
	httpClient *http.Client,
) *CachedRobot {
	return &CachedRobot{
		httpClient:   httpClient,
		userAgent:    userAgent,
		metadataSink: metadataSink,
		rules:        make(map[string]*hostRules),
	}
}

func (c *CachedRobot) IsAllowed(ctx context.Context, rawURL string) bool {
	host := urlutil.Host(rawURL)
	if host == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	entry := c.lookup(host)
	if entry == nil {
		entry = c.install(ctx, host, schemeOf(parsed))
	}

	if entry.data == nil {
		// unknown rules: fail open
		return true
	}
	return entry.data.TestAgent(parsed.Path, c.userAgent)
}

func (c *CachedRobot) lookup(host string) *hostRules {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules[host]
}

// install fetches, parses and caches the host's rules. Concurrent callers
// for the same host collapse onto a single fetch; the first result wins
// and is returned to everyone.
func (c *CachedRobot) install(ctx context.Context, host, scheme string) *hostRules {
	result, _, _ := c.group.Do(host, func() (interface{}, error) {
		if existing := c.lookup(host); existing != nil {
			return existing, nil
		}

		entry := &hostRules{}
		data, fetchErr := c.fetch(ctx, host, scheme)
		if fetchErr != nil {
			c.metadataSink.RecordError(
				time.Now(),
				"robots",
				"CachedRobot.install",
				metadata.CauseRobotsUnavailable,
				fetchErr.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrHost, host),
				},
			)
			// entry.data stays nil: unknown, allow-all
		} else {
			entry.data = data
		}

		c.mu.Lock()
		c.rules[host] = entry
		c.mu.Unlock()
		return entry, nil
	})
	return result.(*hostRules)
}

func (c *CachedRobot) fetch(ctx context.Context, host, scheme string) (*robotstxt.RobotsData, *RobotsError) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Host: host, Cause: ErrCauseHTTPFetchFailure}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/plain,*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Host: host, Cause: ErrCauseHTTPFetchFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		// server errors are a fetch failure, not a disallow-all signal
		return nil, &RobotsError{
			Message: fmt.Sprintf("status %d from %s", resp.StatusCode, robotsURL),
			Host:    host,
			Cause:   ErrCauseServerError,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Host: host, Cause: ErrCauseHTTPFetchFailure}
	}

	// FromStatusAndBytes treats 4xx as allow-all
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Host: host, Cause: ErrCauseParseError}
	}
	return data, nil
}

func schemeOf(u *url.URL) string {
	if u.Scheme == "http" {
		return "http"
	}
	return "https"
}
