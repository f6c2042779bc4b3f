package selector

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"dapigate/internal/endpoint"
	"dapigate/internal/metrics"
	"dapigate/internal/prober"
)

// Tier names which fallback level produced a selection.
type Tier int

const (
	// TierConfigured: healthy endpoints from the configured source.
	TierConfigured Tier = iota
	// TierFallbackProbed: configured source yielded nothing healthy; these
	// are probed healthy endpoints from the static fallback list.
	TierFallbackProbed
	// TierFallbackUnverified: nothing probed healthy anywhere; the raw
	// static fallback list, unprobed, so the consumer never gets an empty
	// configuration.
	TierFallbackUnverified
)

func (t Tier) String() string {
	switch t {
	case TierConfigured:
		return "configured"
	case TierFallbackProbed:
		return "fallback-probed"
	case TierFallbackUnverified:
		return "fallback-unverified"
	default:
		return "unknown"
	}
}

// Selection is the outcome of one selection pass.
type Selection struct {
	Tier      Tier
	Endpoints []string
}

// Provider resolves configured candidates and the static fallback list.
type Provider interface {
	Candidates(ctx context.Context) ([]string, error)
	Fallback() []string
	ClearCache()
}

// Prober ranks candidates by health and probes individual endpoints.
type Prober interface {
	HealthyEndpoints(ctx context.Context, candidates []string) []string
	CheckEndpointHealth(ctx context.Context, rawURL string) prober.HealthCheckResult
	ClearCache()
}

// Selector picks the endpoints a consumer should use for one network,
// degrading across three tiers so the result is never empty.
type Selector struct {
	network  endpoint.Network
	provider Provider
	prober   Prober
}

func New(network endpoint.Network, provider Provider, prober Prober) *Selector {
	return &Selector{
		network:  network,
		provider: provider,
		prober:   prober,
	}
}

func (s *Selector) Network() endpoint.Network {
	return s.network
}

// Select runs the three-tier selection. Provider errors degrade to the next
// tier; they never propagate to the caller.
func (s *Selector) Select(ctx context.Context) Selection {
	candidates, err := s.provider.Candidates(ctx)
	if err != nil {
		log.Warn().Str("network", s.network.String()).Err(err).
			Msg("endpoint configuration unavailable, degrading to fallback")
	}
	if len(candidates) > 0 {
		if healthy := s.prober.HealthyEndpoints(ctx, candidates); len(healthy) > 0 {
			metrics.IncSelection(TierConfigured.String())
			return Selection{Tier: TierConfigured, Endpoints: healthy}
		}
	}

	fallback := s.provider.Fallback()
	if len(fallback) == 0 {
		// Static tables are compiled in and validated by tests; an empty
		// one is a programming error, not a runtime condition.
		log.Panic().Str("network", s.network.String()).
			Msg("static fallback endpoint table is empty")
	}

	if healthy := s.prober.HealthyEndpoints(ctx, fallback); len(healthy) > 0 {
		metrics.IncSelection(TierFallbackProbed.String())
		log.Info().Str("network", s.network.String()).Int("count", len(healthy)).
			Msg("serving probed fallback endpoints")
		return Selection{Tier: TierFallbackProbed, Endpoints: healthy}
	}

	metrics.IncSelection(TierFallbackUnverified.String())
	log.Warn().Str("network", s.network.String()).
		Msg("no endpoint probed healthy, serving unverified fallback list")
	return Selection{Tier: TierFallbackUnverified, Endpoints: fallback}
}

// HealthyEndpoints returns the selected endpoint list, ranked by latency
// when a probed tier produced it.
func (s *Selector) HealthyEndpoints(ctx context.Context) []string {
	return s.Select(ctx).Endpoints
}

// EndpointsString comma-joins the selection. This is the value handed to the
// native SDK when it is constructed.
func (s *Selector) EndpointsString(ctx context.Context) string {
	return strings.Join(s.HealthyEndpoints(ctx), ",")
}

// BestEndpoint returns the first selected endpoint. The second return is
// false only when even the unverified fallback is empty, which Select treats
// as a programming error.
func (s *Selector) BestEndpoint(ctx context.Context) (string, bool) {
	endpoints := s.HealthyEndpoints(ctx)
	if len(endpoints) == 0 {
		return "", false
	}
	return endpoints[0], true
}

// Refresh clears both the provider's and the prober's caches.
func (s *Selector) Refresh() {
	s.provider.ClearCache()
	s.prober.ClearCache()
}
