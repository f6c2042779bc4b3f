package selector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dapigate/internal/endpoint"
	"dapigate/internal/prober"
)

// ConnectivityReport is an operator-facing snapshot. Unlike Select it does
// not short-circuit: every configured and fallback endpoint is probed in
// full. Built fresh per request, never cached.
type ConnectivityReport struct {
	Network     endpoint.Network
	Configured  []prober.HealthCheckResult
	Fallback    []prober.HealthCheckResult
	ConfigError error
	Timestamp   time.Time
}

// Report probes both endpoint sets and returns per-endpoint statuses plus
// any configuration error encountered.
func (s *Selector) Report(ctx context.Context) *ConnectivityReport {
	report := &ConnectivityReport{
		Network:   s.network,
		Timestamp: time.Now(),
	}

	candidates, err := s.provider.Candidates(ctx)
	if err != nil {
		report.ConfigError = err
	}
	for _, candidate := range candidates {
		report.Configured = append(report.Configured, s.prober.CheckEndpointHealth(ctx, candidate))
	}
	for _, candidate := range s.provider.Fallback() {
		report.Fallback = append(report.Fallback, s.prober.CheckEndpointHealth(ctx, candidate))
	}
	return report
}

// Summary renders the report for humans.
func (r *ConnectivityReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "connectivity report for %s at %s\n", r.Network, r.Timestamp.Format(time.RFC3339))
	if r.ConfigError != nil {
		fmt.Fprintf(&b, "  configuration error: %v\n", r.ConfigError)
	}

	writeSection(&b, "configured", r.Configured)
	writeSection(&b, "fallback", r.Fallback)
	return b.String()
}

func writeSection(b *strings.Builder, name string, results []prober.HealthCheckResult) {
	fmt.Fprintf(b, "  %s endpoints: %d\n", name, len(results))
	for _, res := range results {
		status := "ok"
		if !res.Healthy {
			status = "fail"
		}
		fmt.Fprintf(b, "    %-4s %s (%d ms", status, res.Endpoint, res.ResponseTime.Milliseconds())
		if res.StatusCode > 0 {
			fmt.Fprintf(b, ", status %d", res.StatusCode)
		}
		if res.Err != nil {
			fmt.Fprintf(b, ", %v", res.Err)
		}
		b.WriteString(")\n")
	}
}
