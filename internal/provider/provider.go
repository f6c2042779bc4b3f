package provider

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"dapigate/internal/cache"
	"dapigate/internal/endpoint"
	"dapigate/internal/metrics"
)

var (
	ErrRemoteUnavailable = errors.New("remote configuration unavailable")
	ErrInvalidFormat     = errors.New("invalid configuration format")
	ErrNoValidEndpoints  = errors.New("no valid endpoints in configuration")
	ErrResourceNotFound  = errors.New("endpoint resource not found")
	ErrEnvNotSet         = errors.New("endpoint environment variable not set")
)

const (
	defaultConfigTTL = 5 * time.Minute

	// Per-request and overall deadlines for the remote fetch.
	requestTimeout  = 10 * time.Second
	resourceTimeout = 30 * time.Second

	maxConfigBody = 1 << 20
)

//go:embed resources/*.yaml
var resourceFS embed.FS

type Config struct {
	TTL    time.Duration
	Client *retryablehttp.Client
	Clock  func() time.Time
}

// Provider resolves the candidate endpoint list for one network from its
// configured source, caching successful results. It owns its cache; nothing
// else mutates it.
type Provider struct {
	network endpoint.Network
	source  ConfigurationSource
	client  *retryablehttp.Client
	cache   *cache.Store[endpoint.Network, []string]
}

func New(network endpoint.Network, source ConfigurationSource, cfg *Config) *Provider {
	if cfg == nil {
		cfg = &Config{}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultConfigTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	client := cfg.Client
	if client == nil {
		client = newRemoteClient()
	}
	return &Provider{
		network: network,
		source:  source,
		client:  client,
		cache:   cache.NewStoreWithClock[endpoint.Network, []string](ttl, clock),
	}
}

func newRemoteClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.HTTPClient.Timeout = requestTimeout
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.Logger = nil
	return client
}

func (p *Provider) Network() endpoint.Network {
	return p.network
}

func (p *Provider) Source() ConfigurationSource {
	return p.source
}

// Candidates returns the configured endpoint list, from cache while fresh.
func (p *Provider) Candidates(ctx context.Context) ([]string, error) {
	if cached, ok := p.cache.Get(p.network); ok {
		metrics.IncCacheHit("provider")
		log.Debug().Str("network", p.network.String()).Int("count", len(cached)).
			Msg("serving cached endpoint configuration")
		return cached, nil
	}
	metrics.IncCacheMiss("provider")

	endpoints, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	p.cache.Set(p.network, endpoints)
	return endpoints, nil
}

// Refresh drops the cached entry and fetches anew.
func (p *Provider) Refresh(ctx context.Context) ([]string, error) {
	p.cache.Delete(p.network)
	return p.Candidates(ctx)
}

// ClearCache drops the cached entry without fetching.
func (p *Provider) ClearCache() {
	p.cache.Clear()
}

// Fallback returns the static fallback list for the provider's network.
// It never fails and is never empty.
func (p *Provider) Fallback() []string {
	return endpoint.FallbackEndpoints(p.network)
}

func (p *Provider) fetch(ctx context.Context) ([]string, error) {
	switch p.source.Kind {
	case SourceRemote:
		return p.fetchRemote(ctx)
	case SourceLocalResource:
		return p.loadResource()
	case SourceEnvironment:
		return p.readEnv()
	default:
		return nil, fmt.Errorf("unknown configuration source kind %d", p.source.Kind)
	}
}

func (p *Provider) fetchRemote(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, resourceTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.source.Value, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	var doc struct {
		Endpoints []string `json:"endpoints"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if doc.Endpoints == nil {
		return nil, fmt.Errorf("%w: missing endpoints field", ErrInvalidFormat)
	}

	valid := endpoint.Sanitize(doc.Endpoints)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValidEndpoints, p.source.Value)
	}
	return valid, nil
}

func (p *Provider) loadResource() ([]string, error) {
	data, err := resourceFS.ReadFile("resources/" + p.source.Value + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, p.source.Value)
	}

	var doc struct {
		Endpoints []string `yaml:"endpoints"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResourceNotFound, p.source.Value, err)
	}
	if len(doc.Endpoints) == 0 {
		return nil, fmt.Errorf("%w: %s has no endpoints field", ErrResourceNotFound, p.source.Value)
	}

	valid := endpoint.Sanitize(doc.Endpoints)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValidEndpoints, p.source.Value)
	}
	return valid, nil
}

func (p *Provider) readEnv() ([]string, error) {
	raw, ok := os.LookupEnv(p.source.Value)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEnvNotSet, p.source.Value)
	}

	var parts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}

	valid := endpoint.Sanitize(parts)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValidEndpoints, p.source.Value)
	}
	return valid, nil
}
