package selector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dapigate/internal/endpoint"
	"dapigate/internal/prober"
)

type fakeProvider struct {
	candidates []string
	err        error
	fallback   []string
	cleared    bool
}

func (f *fakeProvider) Candidates(ctx context.Context) ([]string, error) {
	return f.candidates, f.err
}

func (f *fakeProvider) Fallback() []string { return f.fallback }
func (f *fakeProvider) ClearCache()        { f.cleared = true }

type fakeProber struct {
	healthy map[string]bool
	checked []string
	cleared bool
}

func (f *fakeProber) HealthyEndpoints(ctx context.Context, candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if f.healthy[c] {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeProber) CheckEndpointHealth(ctx context.Context, rawURL string) prober.HealthCheckResult {
	f.checked = append(f.checked, rawURL)
	return prober.HealthCheckResult{
		Endpoint:     rawURL,
		Healthy:      f.healthy[rawURL],
		ResponseTime: 10 * time.Millisecond,
	}
}

func (f *fakeProber) ClearCache() { f.cleared = true }

func TestSelectConfiguredTier(t *testing.T) {
	prov := &fakeProvider{
		candidates: []string{"https://a.test", "https://b.test"},
		fallback:   []string{"https://fb.test"},
	}
	prob := &fakeProber{healthy: map[string]bool{"https://a.test": true}}

	sel := New(endpoint.Mainnet, prov, prob)

	got := sel.Select(context.Background())
	assert.Equal(t, TierConfigured, got.Tier)
	assert.Equal(t, []string{"https://a.test"}, got.Endpoints)
}

func TestSelectDegradesOnProviderError(t *testing.T) {
	prov := &fakeProvider{
		err:      errors.New("remote configuration unavailable"),
		fallback: []string{"https://fb.test"},
	}
	prob := &fakeProber{healthy: map[string]bool{"https://fb.test": true}}

	sel := New(endpoint.Mainnet, prov, prob)

	// The provider error is swallowed, never propagated.
	got := sel.Select(context.Background())
	assert.Equal(t, TierFallbackProbed, got.Tier)
	assert.Equal(t, []string{"https://fb.test"}, got.Endpoints)
}

func TestSelectDegradesWhenNoCandidateHealthy(t *testing.T) {
	prov := &fakeProvider{
		candidates: []string{"https://a.test"},
		fallback:   []string{"https://fb.test"},
	}
	prob := &fakeProber{healthy: map[string]bool{"https://fb.test": true}}

	sel := New(endpoint.Mainnet, prov, prob)

	got := sel.Select(context.Background())
	assert.Equal(t, TierFallbackProbed, got.Tier)
}

func TestSelectUnverifiedFallbackIsNeverEmpty(t *testing.T) {
	prov := &fakeProvider{
		candidates: []string{"https://a.test"},
		fallback:   []string{"https://fb-1.test", "https://fb-2.test"},
	}
	prob := &fakeProber{healthy: map[string]bool{}}

	sel := New(endpoint.Mainnet, prov, prob)

	got := sel.Select(context.Background())
	assert.Equal(t, TierFallbackUnverified, got.Tier)
	assert.Equal(t, []string{"https://fb-1.test", "https://fb-2.test"}, got.Endpoints,
		"the raw fallback list is returned unprobed rather than an empty result")
}

func TestSelectPanicsOnEmptyFallbackTable(t *testing.T) {
	prov := &fakeProvider{}
	prob := &fakeProber{healthy: map[string]bool{}}

	sel := New(endpoint.Mainnet, prov, prob)

	assert.Panics(t, func() { sel.Select(context.Background()) },
		"an empty static fallback table is a programming error, not a runtime condition")
}

func TestEndpointsStringRoundTrip(t *testing.T) {
	prov := &fakeProvider{
		candidates: []string{"https://a.test", "https://b.test", "https://c.test"},
		fallback:   []string{"https://fb.test"},
	}
	prob := &fakeProber{healthy: map[string]bool{
		"https://a.test": true,
		"https://b.test": true,
		"https://c.test": true,
	}}

	sel := New(endpoint.Mainnet, prov, prob)
	ctx := context.Background()

	joined := sel.EndpointsString(ctx)
	assert.Equal(t, sel.HealthyEndpoints(ctx), strings.Split(joined, ","))
}

func TestBestEndpoint(t *testing.T) {
	prov := &fakeProvider{
		candidates: []string{"https://a.test", "https://b.test"},
		fallback:   []string{"https://fb.test"},
	}
	prob := &fakeProber{healthy: map[string]bool{
		"https://a.test": true,
		"https://b.test": true,
	}}

	sel := New(endpoint.Mainnet, prov, prob)

	best, ok := sel.BestEndpoint(context.Background())
	require.True(t, ok)
	assert.Equal(t, "https://a.test", best)
}

func TestRefreshClearsBothCaches(t *testing.T) {
	prov := &fakeProvider{fallback: []string{"https://fb.test"}}
	prob := &fakeProber{}

	sel := New(endpoint.Mainnet, prov, prob)
	sel.Refresh()

	assert.True(t, prov.cleared)
	assert.True(t, prob.cleared)
}

func TestReport(t *testing.T) {
	configErr := errors.New("remote configuration unavailable")
	prov := &fakeProvider{
		candidates: []string{"https://a.test"},
		err:        configErr,
		fallback:   []string{"https://fb-1.test", "https://fb-2.test"},
	}
	prob := &fakeProber{healthy: map[string]bool{
		"https://a.test":    true,
		"https://fb-1.test": true,
	}}

	sel := New(endpoint.Testnet, prov, prob)

	report := sel.Report(context.Background())
	assert.Equal(t, endpoint.Testnet, report.Network)
	assert.Equal(t, configErr, report.ConfigError)
	assert.Len(t, report.Configured, 1)
	assert.Len(t, report.Fallback, 2)
	assert.False(t, report.Timestamp.IsZero())

	// Unlike Select, the report probes every endpoint of both sets.
	assert.Equal(t, []string{"https://a.test", "https://fb-1.test", "https://fb-2.test"}, prob.checked)

	summary := report.Summary()
	assert.Contains(t, summary, "testnet")
	assert.Contains(t, summary, "https://fb-2.test")
	assert.Contains(t, summary, "remote configuration unavailable")
}

// stubProvider wires a real prober into the selector with controlled
// candidate and fallback lists.
type stubProvider struct {
	candidates []string
	err        error
	fallback   []string
}

func (s *stubProvider) Candidates(ctx context.Context) ([]string, error) {
	return s.candidates, s.err
}

func (s *stubProvider) Fallback() []string { return s.fallback }
func (s *stubProvider) ClearCache()        {}

func TestSelectWithRealProberDegradesToProbedFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	prov := &stubProvider{
		err:      errors.New("remote configuration unavailable"),
		fallback: []string{srv.URL},
	}
	sel := New(endpoint.Mainnet, prov, prober.New(nil))

	got := sel.Select(context.Background())
	assert.Equal(t, TierFallbackProbed, got.Tier)
	assert.Equal(t, []string{srv.URL}, got.Endpoints)
}

func TestSelectWithRealProberAllTimeoutsServeUnverified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	prov := &stubProvider{
		candidates: []string{srv.URL + "/configured"},
		fallback:   []string{srv.URL + "/fallback"},
	}
	prob := prober.New(&prober.Config{Timeout: 30 * time.Millisecond})
	sel := New(endpoint.Mainnet, prov, prob)

	got := sel.Select(context.Background())
	assert.Equal(t, TierFallbackUnverified, got.Tier)
	assert.Equal(t, []string{srv.URL + "/fallback"}, got.Endpoints)
}
