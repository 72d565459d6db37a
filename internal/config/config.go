package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Seed page given to the crawler to begin discovering and traversing
	// other pages. Its authority defines the crawl domain.
	startURL string

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from the seed URL.
	// Validated but reserved: the frontier stores bare URL strings.
	maxDepth int

	//===============
	// Workers
	//===============
	// Maximum number of crawl worker goroutines processing URLs concurrently;
	// it does not control OS threads or CPU parallelism.
	concurrency int
	// Bound on the graceful shutdown drain after cancellation
	shutdownTimeout time.Duration

	//===============
	// Backoff
	//===============
	// initial delay for backoff
	backoffBase time.Duration
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMax time.Duration
	// Uniform additive jitter in [0, backoffJitter]
	backoffJitter time.Duration
	// maximum number of backoff sleeps per retriable failure
	backoffRetries int
	// Controls the random number generator
	randomSeed int64

	//===============
	// Fetch
	//===============
	// Maximum time of a single page fetch request
	timeout time.Duration
	// Maximum time of a robots.txt fetch request
	robotsTimeout time.Duration
	// User agent token used in request headers and robots.txt matching
	userAgent string

	//===============
	// Coordination store
	//===============
	redisHost string
	redisPort int
	// Redis list holding pending URLs (enqueue-head / dequeue-tail)
	queueKey string
	// Redis set holding every URL ever admitted
	visitedSetKey string
	// Timeout of the blocking pop used for drain detection
	brpopTimeout time.Duration
}

type redisDTO struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type configDTO struct {
	StartURL        *string   `yaml:"startUrl"`
	Concurrency     *int      `yaml:"concurrency"`
	TimeoutMs       *int      `yaml:"timeoutMs"`
	MaxDepth        *int      `yaml:"maxDepth"`
	BackoffBaseMs   *int      `yaml:"backoffBaseMs"`
	BackoffMaxMs    *int      `yaml:"backoffMaxMs"`
	BackoffJitterMs *int      `yaml:"backoffJitterMs"`
	BackoffRetries  *int      `yaml:"backoffRetries"`
	RobotsTimeoutMs *int      `yaml:"robotsTimeoutMs"`
	Redis           *redisDTO `yaml:"redis"`

	// Optional fields fall back to defaults when absent
	UserAgent         *string `yaml:"userAgent"`
	QueueKey          *string `yaml:"queueKey"`
	VisitedSetKey     *string `yaml:"visitedSetKey"`
	BrpopTimeoutMs    *int    `yaml:"brpopTimeoutMs"`
	ShutdownTimeoutMs *int    `yaml:"shutdownTimeoutMs"`
	RandomSeed        *int64  `yaml:"randomSeed"`
}

func newBuilderFromDTO(dto configDTO) (*Config, error) {
	// Required fields: a supplied file must spell these out
	if dto.StartURL == nil {
		return nil, fmt.Errorf("%w: startUrl", ErrMissingConfigField)
	}
	if dto.Concurrency == nil {
		return nil, fmt.Errorf("%w: concurrency", ErrMissingConfigField)
	}
	if dto.TimeoutMs == nil {
		return nil, fmt.Errorf("%w: timeoutMs", ErrMissingConfigField)
	}
	if dto.MaxDepth == nil {
		return nil, fmt.Errorf("%w: maxDepth", ErrMissingConfigField)
	}
	if dto.BackoffBaseMs == nil {
		return nil, fmt.Errorf("%w: backoffBaseMs", ErrMissingConfigField)
	}
	if dto.BackoffMaxMs == nil {
		return nil, fmt.Errorf("%w: backoffMaxMs", ErrMissingConfigField)
	}
	if dto.BackoffJitterMs == nil {
		return nil, fmt.Errorf("%w: backoffJitterMs", ErrMissingConfigField)
	}
	if dto.BackoffRetries == nil {
		return nil, fmt.Errorf("%w: backoffRetries", ErrMissingConfigField)
	}
	if dto.RobotsTimeoutMs == nil {
		return nil, fmt.Errorf("%w: robotsTimeoutMs", ErrMissingConfigField)
	}
	if dto.Redis == nil || dto.Redis.Host == nil {
		return nil, fmt.Errorf("%w: redis.host", ErrMissingConfigField)
	}
	if dto.Redis.Port == nil {
		return nil, fmt.Errorf("%w: redis.port", ErrMissingConfigField)
	}

	builder := WithDefault(*dto.StartURL).
		WithConcurrency(*dto.Concurrency).
		WithTimeout(time.Duration(*dto.TimeoutMs) * time.Millisecond).
		WithMaxDepth(*dto.MaxDepth).
		WithBackoffBase(time.Duration(*dto.BackoffBaseMs) * time.Millisecond).
		WithBackoffMax(time.Duration(*dto.BackoffMaxMs) * time.Millisecond).
		WithBackoffJitter(time.Duration(*dto.BackoffJitterMs) * time.Millisecond).
		WithBackoffRetries(*dto.BackoffRetries).
		WithRobotsTimeout(time.Duration(*dto.RobotsTimeoutMs) * time.Millisecond).
		WithRedisEndpoint(*dto.Redis.Host, *dto.Redis.Port)

	if dto.UserAgent != nil {
		builder = builder.WithUserAgent(*dto.UserAgent)
	}
	if dto.QueueKey != nil {
		builder = builder.WithQueueKey(*dto.QueueKey)
	}
	if dto.VisitedSetKey != nil {
		builder = builder.WithVisitedSetKey(*dto.VisitedSetKey)
	}
	if dto.BrpopTimeoutMs != nil {
		builder = builder.WithBrpopTimeout(time.Duration(*dto.BrpopTimeoutMs) * time.Millisecond)
	}
	if dto.ShutdownTimeoutMs != nil {
		builder = builder.WithShutdownTimeout(time.Duration(*dto.ShutdownTimeoutMs) * time.Millisecond)
	}
	if dto.RandomSeed != nil {
		builder = builder.WithRandomSeed(*dto.RandomSeed)
	}

	return builder, nil
}

// WithConfigFile reads a YAML config file, applies the environment
// overrides, and builds a validated Config. An empty or malformed file
// is an error; so is any absent required field.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	if len(configContent) == 0 {
		return Config{}, fmt.Errorf("%w: file is empty", ErrConfigParsingFail)
	}

	cfgDTO := configDTO{}
	err = yaml.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	builder, err := newBuilderFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	builder, err = builder.WithEnvOverrides()
	if err != nil {
		return Config{}, err
	}
	return builder.Build()
}

// WithDefault creates a config builder seeded with startURL and default
// values for every other field. Call Build to validate and freeze it.
func WithDefault(startURL string) *Config {
	defaultConfig := Config{
		startURL:        startURL,
		maxDepth:        3,
		concurrency:     10,
		shutdownTimeout: 10 * time.Second,
		backoffBase:     100 * time.Millisecond,
		backoffMax:      10 * time.Second,
		backoffJitter:   500 * time.Millisecond,
		backoffRetries:  3,
		randomSeed:      time.Now().UnixNano(),
		timeout:         10 * time.Second,
		robotsTimeout:   5 * time.Second,
		userAgent:       "monzo-crawler",
		redisHost:       "localhost",
		redisPort:       6379,
		queueKey:        "frontier:queue",
		visitedSetKey:   "frontier:visited",
		brpopTimeout:    time.Second,
	}
	return &defaultConfig
}

func (c *Config) WithStartURL(startURL string) *Config {
	c.startURL = startURL
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithShutdownTimeout(timeout time.Duration) *Config {
	c.shutdownTimeout = timeout
	return c
}

func (c *Config) WithBackoffBase(base time.Duration) *Config {
	c.backoffBase = base
	return c
}

func (c *Config) WithBackoffMax(max time.Duration) *Config {
	c.backoffMax = max
	return c
}

func (c *Config) WithBackoffJitter(jitter time.Duration) *Config {
	c.backoffJitter = jitter
	return c
}

func (c *Config) WithBackoffRetries(retries int) *Config {
	c.backoffRetries = retries
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithRobotsTimeout(timeout time.Duration) *Config {
	c.robotsTimeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithRedisEndpoint(host string, port int) *Config {
	c.redisHost = host
	c.redisPort = port
	return c
}

func (c *Config) WithQueueKey(key string) *Config {
	c.queueKey = key
	return c
}

func (c *Config) WithVisitedSetKey(key string) *Config {
	c.visitedSetKey = key
	return c
}

func (c *Config) WithBrpopTimeout(timeout time.Duration) *Config {
	c.brpopTimeout = timeout
	return c
}

// WithEnvOverrides applies coordination-store overrides from the process
// environment. Malformed numeric values are reported as invalid config.
func (c *Config) WithEnvOverrides() (*Config, error) {
	if host := os.Getenv("REDIS_HOST"); host != "" {
		c.redisHost = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("%w: REDIS_PORT=%q: %s", ErrInvalidConfig, port, err.Error())
		}
		c.redisPort = parsed
	}
	if key := os.Getenv("MDC_QUEUE_KEY"); key != "" {
		c.queueKey = key
	}
	if key := os.Getenv("MDC_VISITED_SET_KEY"); key != "" {
		c.visitedSetKey = key
	}
	if timeout := os.Getenv("MDC_BRPOP_TIMEOUT"); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: MDC_BRPOP_TIMEOUT=%q: %s", ErrInvalidConfig, timeout, err.Error())
		}
		c.brpopTimeout = parsed
	}
	return c, nil
}

// Build validates the builder state and returns the immutable Config.
// Validation errors are not recoverable; the process should exit.
func (c *Config) Build() (Config, error) {
	if c.startURL == "" {
		return Config{}, fmt.Errorf("%w: startUrl must not be empty", ErrInvalidConfig)
	}
	parsed, err := url.Parse(c.startURL)
	if err != nil {
		return Config{}, fmt.Errorf("%w: startUrl %q: %s", ErrInvalidConfig, c.startURL, err.Error())
	}
	if parsed.Host == "" {
		return Config{}, fmt.Errorf("%w: startUrl %q has no host", ErrInvalidConfig, c.startURL)
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrInvalidConfig, c.concurrency)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeoutMs must be > 0, got %v", ErrInvalidConfig, c.timeout)
	}
	if c.maxDepth <= 0 {
		return Config{}, fmt.Errorf("%w: maxDepth must be > 0, got %d", ErrInvalidConfig, c.maxDepth)
	}
	if c.backoffBase <= 0 {
		return Config{}, fmt.Errorf("%w: backoffBaseMs must be > 0, got %v", ErrInvalidConfig, c.backoffBase)
	}
	if c.backoffMax < c.backoffBase {
		return Config{}, fmt.Errorf(
			"%w: backoffMaxMs %v must be >= backoffBaseMs %v",
			ErrInvalidConfig, c.backoffMax, c.backoffBase,
		)
	}
	if c.backoffJitter < 0 {
		return Config{}, fmt.Errorf("%w: backoffJitterMs must be >= 0, got %v", ErrInvalidConfig, c.backoffJitter)
	}
	if c.backoffRetries < 1 {
		return Config{}, fmt.Errorf("%w: backoffRetries must be >= 1, got %d", ErrInvalidConfig, c.backoffRetries)
	}
	if c.robotsTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: robotsTimeoutMs must be > 0, got %v", ErrInvalidConfig, c.robotsTimeout)
	}
	if c.redisHost == "" {
		return Config{}, fmt.Errorf("%w: redis host must not be empty", ErrInvalidConfig)
	}
	if c.redisPort < 1 || c.redisPort > 65535 {
		return Config{}, fmt.Errorf("%w: redis port out of range: %d", ErrInvalidConfig, c.redisPort)
	}
	if c.queueKey == "" || c.visitedSetKey == "" {
		return Config{}, fmt.Errorf("%w: frontier keys must not be empty", ErrInvalidConfig)
	}
	if c.brpopTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: brpop timeout must be > 0, got %v", ErrInvalidConfig, c.brpopTimeout)
	}
	if c.shutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: shutdown timeout must be > 0, got %v", ErrInvalidConfig, c.shutdownTimeout)
	}
	if c.userAgent == "" {
		return Config{}, fmt.Errorf("%w: userAgent must not be empty", ErrInvalidConfig)
	}
	return *c, nil
}

func (c *Config) StartURL() string {
	return c.startURL
}

func (c *Config) MaxDepth() int {
	return c.maxDepth
}

func (c *Config) Concurrency() int {
	return c.concurrency
}

func (c *Config) ShutdownTimeout() time.Duration {
	return c.shutdownTimeout
}

func (c *Config) BackoffBase() time.Duration {
	return c.backoffBase
}

func (c *Config) BackoffMax() time.Duration {
	return c.backoffMax
}

func (c *Config) BackoffJitter() time.Duration {
	return c.backoffJitter
}

func (c *Config) BackoffRetries() int {
	return c.backoffRetries
}

func (c *Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c *Config) Timeout() time.Duration {
	return c.timeout
}

func (c *Config) RobotsTimeout() time.Duration {
	return c.robotsTimeout
}

func (c *Config) UserAgent() string {
	return c.userAgent
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.redisHost, c.redisPort)
}

func (c *Config) QueueKey() string {
	return c.queueKey
}

func (c *Config) VisitedSetKey() string {
	return c.visitedSetKey
}

func (c *Config) BrpopTimeout() time.Duration {
	return c.brpopTimeout
}
