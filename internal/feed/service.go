package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/fixtral/fixtral/internal/cache"
	"github.com/fixtral/fixtral/internal/reddit"
)

// CacheKey is the cache entry shared by every feed request.
const CacheKey = "reddit_photoshop_requests"

const (
	DefaultSubreddit = "PhotoshopRequest"
	DefaultLimit     = 10
	DefaultMaxAge    = 5 * time.Minute
)

var (
	cacheHits     = metrics.NewCounter(`fixtral_feed_cache_total{result="hit"}`)
	cacheMisses   = metrics.NewCounter(`fixtral_feed_cache_total{result="miss"}`)
	fetchFailures = metrics.NewCounter(`fixtral_feed_fetch_errors_total`)
)

// Config selects the subreddit and freshness of the feed.
type Config struct {
	Subreddit string
	Limit     int
	MaxAge    time.Duration
}

// Service serves the image-request feed through a read-through cache.
type Service struct {
	fetcher   reddit.Fetcher
	cache     *cache.Cache[[]reddit.Post]
	subreddit string
	limit     int
	maxAge    time.Duration
}

// NewService creates a Service. Zero-valued Config fields take their defaults.
func NewService(fetcher reddit.Fetcher, c *cache.Cache[[]reddit.Post], cfg Config) *Service {
	if cfg.Subreddit == "" {
		cfg.Subreddit = DefaultSubreddit
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Service{
		fetcher:   fetcher,
		cache:     c,
		subreddit: cfg.Subreddit,
		limit:     cfg.Limit,
		maxAge:    cfg.MaxAge,
	}
}

// Posts returns the image posts of the configured subreddit. Unless refresh is
// set, a cached list younger than the max-age is returned without calling
// upstream. Fetch failures are returned as-is and leave the cache untouched.
func (s *Service) Posts(ctx context.Context, refresh bool) ([]reddit.Post, error) {
	if !refresh {
		if posts, ok := s.cache.Get(CacheKey, s.maxAge); ok {
			cacheHits.Inc()
			return posts, nil
		}
		cacheMisses.Inc()
	}

	return s.fetch(ctx, refresh)
}

// fetch goes upstream and stores the filtered result. Concurrent misses each
// fetch; the last write wins.
func (s *Service) fetch(ctx context.Context, refresh bool) ([]reddit.Post, error) {
	start := time.Now()
	posts, err := s.fetcher.FetchNew(ctx, s.subreddit, s.limit)
	if err != nil {
		fetchFailures.Inc()
		return nil, fmt.Errorf("fetching r/%s: %w", s.subreddit, err)
	}

	images := reddit.FilterImages(posts)
	s.cache.Set(CacheKey, images, s.maxAge)

	slog.Debug("feed refreshed",
		"subreddit", s.subreddit,
		"fetched", len(posts),
		"images", len(images),
		"refresh", refresh,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return images, nil
}

// Invalidate drops the cached feed so the next read goes upstream.
func (s *Service) Invalidate() {
	s.cache.Invalidate(CacheKey)
}
