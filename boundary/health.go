package boundary

import (
	"context"
	"fmt"

	"github.com/jonwraymond/boundary/breaker"
	"github.com/jonwraymond/boundary/health"
)

// Health runs a composite health check across every started provider,
// reporting each provider's circuit breaker as a health.Checker: open
// is unhealthy, half-open is degraded, closed is healthy. Not required
// required -- a natural ambient capability for an operable gateway.
func (b *Boundary) Health(ctx context.Context) map[string]health.Result {
	if !b.started.Load() {
		return map[string]health.Result{"boundary": health.Unhealthy("not started", ErrNotStarted)}
	}

	agg := health.NewAggregator()

	b.mu.RLock()
	for name, br := range b.breakers {
		agg.Register(name, breakerChecker{name: name, breaker: br})
	}
	b.mu.RUnlock()

	return agg.CheckAll(ctx)
}

// breakerChecker adapts a provider's circuit breaker to health.Checker.
type breakerChecker struct {
	name    string
	breaker *breaker.Breaker
}

func (c breakerChecker) Name() string { return c.name }

func (c breakerChecker) Check(ctx context.Context) health.Result {
	status := c.breaker.Status()
	switch status.State {
	case breaker.StateOpen:
		return health.Unhealthy(fmt.Sprintf("circuit open, next attempt %s", status.NextAttempt.Format(timeFormat)), breaker.ErrOpen)
	case breaker.StateHalfOpen:
		return health.Degraded("circuit half-open, probing")
	default:
		return health.Healthy("circuit closed")
	}
}
