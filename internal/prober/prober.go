package prober

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"dapigate/internal/cache"
	"dapigate/internal/metrics"
)

var (
	ErrInvalidEndpointURL = errors.New("invalid endpoint URL")
	ErrConnectionTimeout  = errors.New("connection timed out")
	ErrServerError        = errors.New("server error")
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultConcurrency  = 5
	defaultHealthTTL    = time.Minute

	userAgent = "dapigate/1.0"
)

// HealthCheckResult is the immutable outcome of one probe. Failures are
// data, never returned errors.
type HealthCheckResult struct {
	Endpoint     string
	Healthy      bool
	StatusCode   int
	ResponseTime time.Duration
	Err          error
}

type Config struct {
	Timeout     time.Duration
	Concurrency int
	HealthTTL   time.Duration
	Client      *http.Client
	Clock       func() time.Time
}

// Prober ranks candidate endpoint URLs by live reachability and latency.
// Batch probes fan out under a counting semaphore so no more than
// Concurrency requests are ever in flight at once. Results, healthy and
// unhealthy alike, are cached for HealthTTL so negatives are not re-probed
// on every call.
type Prober struct {
	client  *http.Client
	sem     *semaphore.Weighted
	timeout time.Duration
	cache   *cache.Store[string, HealthCheckResult]
}

func New(cfg *Config) *Prober {
	if cfg == nil {
		cfg = &Config{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	ttl := cfg.HealthTTL
	if ttl <= 0 {
		ttl = defaultHealthTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	client := cfg.Client
	if client == nil {
		client = newProbeClient()
	}
	return &Prober{
		client:  client,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		timeout: timeout,
		cache:   cache.NewStoreWithClock[string, HealthCheckResult](ttl, clock),
	}
}

// Probe issues a single GET against rawURL. A status under 500 counts as
// healthy: the probe checks that the server is up, not that it answers
// correctly, so a 404 still passes. Elapsed time is recorded regardless of
// outcome.
func (p *Prober) Probe(ctx context.Context, rawURL string) HealthCheckResult {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return HealthCheckResult{
			Endpoint: rawURL,
			Err:      fmt.Errorf("%w: %s", ErrInvalidEndpointURL, rawURL),
		}
	}

	start := time.Now()

	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return HealthCheckResult{
			Endpoint:     rawURL,
			ResponseTime: time.Since(start),
			Err:          fmt.Errorf("%w: %v", ErrInvalidEndpointURL, err),
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)

	result := HealthCheckResult{
		Endpoint:     rawURL,
		ResponseTime: elapsed,
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Err = fmt.Errorf("%w: %s", ErrConnectionTimeout, rawURL)
		} else {
			result.Err = err
		}
		metrics.ObserveProbe("error", elapsed)
		return result
	}
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode < http.StatusInternalServerError {
		result.Healthy = true
		metrics.ObserveProbe("healthy", elapsed)
	} else {
		result.Err = fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
		metrics.ObserveProbe("unhealthy", elapsed)
	}
	return result
}

// HealthyEndpoints returns the healthy subset of candidates ordered by
// ascending response time.
//
// When at least one candidate has a fresh healthy cache entry, the cached
// subset is returned without reprobing. That trades completeness for
// latency: the list can be shorter than a full reprobe would yield. Callers
// that need a complete pass go through ClearCache first.
func (p *Prober) HealthyEndpoints(ctx context.Context, candidates []string) []string {
	if cached := p.cachedHealthy(candidates); len(cached) > 0 {
		metrics.IncCacheHit("prober")
		return rank(cached)
	}
	metrics.IncCacheMiss("prober")

	results := p.probeAll(ctx, candidates)

	healthy := make([]HealthCheckResult, 0, len(results))
	for _, res := range results {
		if res.Healthy {
			healthy = append(healthy, res)
		}
	}
	return rank(healthy)
}

// CheckEndpointHealth probes a single endpoint, bypassing the batch path.
// Used by diagnostics.
func (p *Prober) CheckEndpointHealth(ctx context.Context, rawURL string) HealthCheckResult {
	result := p.Probe(ctx, rawURL)
	if ctx.Err() == nil {
		p.cache.Set(rawURL, result)
	}
	return result
}

// BestEndpoint returns the lowest-latency healthy candidate, falling back to
// the fallback list when no candidate is healthy. The second return is false
// only when both sets yield nothing.
func (p *Prober) BestEndpoint(ctx context.Context, candidates, fallback []string) (string, bool) {
	if healthy := p.HealthyEndpoints(ctx, candidates); len(healthy) > 0 {
		return healthy[0], true
	}
	if healthy := p.HealthyEndpoints(ctx, fallback); len(healthy) > 0 {
		return healthy[0], true
	}
	return "", false
}

// ClearCache drops every cached probe result.
func (p *Prober) ClearCache() {
	p.cache.Clear()
}

// probeAll fans out one probe per candidate, gated by the semaphore, and
// collects every result. Candidates with a fresh cache entry, unhealthy ones
// included, are served from cache so negatives are not re-probed every call.
// Arrival order is unspecified; the caller sorts. Cancelled probes are
// discarded without touching the cache.
func (p *Prober) probeAll(ctx context.Context, candidates []string) []HealthCheckResult {
	results := make([]HealthCheckResult, 0, len(candidates))
	var toProbe []string
	for _, candidate := range candidates {
		if res, ok := p.cache.Get(candidate); ok {
			results = append(results, res)
			continue
		}
		toProbe = append(toProbe, candidate)
	}

	resultCh := make(chan HealthCheckResult, len(toProbe))

	var wg sync.WaitGroup
	for _, candidate := range toProbe {
		wg.Add(1)
		go func(candidate string) {
			defer wg.Done()

			if err := p.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer p.sem.Release(1)

			result := p.Probe(ctx, candidate)
			if ctx.Err() != nil {
				return
			}
			p.cache.Set(candidate, result)
			resultCh <- result
		}(candidate)
	}
	wg.Wait()
	close(resultCh)

	for res := range resultCh {
		if !res.Healthy {
			log.Debug().Str("endpoint", res.Endpoint).Err(res.Err).Msg("probe failed")
		}
		results = append(results, res)
	}
	return results
}

func (p *Prober) cachedHealthy(candidates []string) []HealthCheckResult {
	var fresh []HealthCheckResult
	for _, candidate := range candidates {
		if res, ok := p.cache.Get(candidate); ok && res.Healthy {
			fresh = append(fresh, res)
		}
	}
	return fresh
}

func rank(results []HealthCheckResult) []string {
	sort.Slice(results, func(i, j int) bool {
		return results[i].ResponseTime < results[j].ResponseTime
	})
	urls := make([]string, len(results))
	for i, res := range results {
		urls[i] = res.Endpoint
	}
	return urls
}
