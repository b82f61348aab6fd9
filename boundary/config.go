// Package boundary is the client-side resilience gateway: it fronts
// outbound calls to third-party REST providers and normalizes
// authentication, rate limiting, circuit breaking, retry, pagination,
// and error handling behind a single provider-agnostic contract. This
// file holds the configuration surface, validated synchronously at
// construction the way observe.Config is validated.
package boundary

import (
	"fmt"
	"time"

	"github.com/jonwraymond/boundary/adapter"
	"github.com/jonwraymond/boundary/breaker"
	"github.com/jonwraymond/boundary/idempotency"
	"github.com/jonwraymond/boundary/observe"
	"github.com/jonwraymond/boundary/ratelimiter"
	"github.com/jonwraymond/boundary/retry"
	"github.com/jonwraymond/boundary/schema"
	"github.com/jonwraymond/boundary/secret"
	"github.com/jonwraymond/boundary/statestore"
)

// Mode selects where resilience state is allowed to live.
type Mode string

const (
	ModeLocal       Mode = "local"
	ModeDistributed Mode = "distributed"
)

// ProviderConfig is one provider's entry in BoundaryConfig.Providers.
type ProviderConfig struct {
	// BaseURL is the provider's API origin, passed to Adapter.BuildRequest.
	BaseURL string
	// Adapter is used verbatim if set; otherwise a built-in is looked
	// up by the provider's registered name.
	Adapter adapter.Adapter
	// Auth carries credential material into Adapter.AuthStrategy.
	// Token/Credentials values may be a "secretref:<provider>:<ref>"
	// reference or a strict "${VAR}" environment reference, resolved
	// once at start via the configured secret.Resolver.
	Auth adapter.AuthConfig
	// Retry overrides Defaults.Retry for this provider.
	Retry *retry.Config
	// CircuitBreaker overrides Defaults.CircuitBreaker for this provider.
	CircuitBreaker *breaker.Config
	// RateLimit overrides Defaults.RateLimit for this provider.
	RateLimit *ratelimiter.Config
	// Timeout overrides Defaults.Timeout for this provider.
	Timeout time.Duration
	// IdempotencyOverrides adds pattern-matched overrides on top of
	// the adapter's own GetIdempotencyConfig.
	IdempotencyOverrides map[string]idempotency.Level
}

// DefaultsConfig supplies per-provider defaults for any field a
// ProviderConfig leaves unset.
type DefaultsConfig struct {
	Retry          retry.Config
	CircuitBreaker breaker.Config
	RateLimit      ratelimiter.Config
	Timeout        time.Duration
}

// ObservabilityConfig wires the sinks and platform logger every
// pipeline shares by reference. Sinks are write-only from a pipeline's
// perspective; Tracer/Metrics/Logger default to no-ops when unset.
type ObservabilityConfig struct {
	Sinks   []observe.Sink
	Logger  observe.Logger
	Tracer  observe.Tracer
	Metrics observe.Metrics
}

// SanitizerConfig extends the default redaction key set.
type SanitizerConfig struct {
	RedactedKeys []string
}

// IdempotencyPolicy is the instance-wide idempotency default and
// auto-key behavior, layered under each provider's own resolver.
type IdempotencyPolicy struct {
	DefaultLevel     idempotency.Level
	AutoGenerateKeys bool
}

// Config is the gateway's top-level, validated-at-construction
// configuration. Only the {providers: {...}} shape is supported; the
// legacy flat {<name>: {...}} shape is intentionally not implemented.
type Config struct {
	Providers              map[string]ProviderConfig
	Defaults               DefaultsConfig
	Observability          ObservabilityConfig
	ObservabilitySanitizer SanitizerConfig
	Idempotency            IdempotencyPolicy
	Mode                   Mode
	StateStorage           statestore.StateStorage
	LocalUnsafe            bool
	SchemaValidation       schema.Validator
	ServiceName            string
	// Secrets resolves "secretref:<provider>:<ref>" and strict
	// "${VAR}" environment references inside ProviderConfig.Auth
	// before it reaches an adapter's AuthStrategy. Defaults to a
	// strict resolver with no registered secret providers (so only
	// ${VAR} expansion and plain values work) when nil.
	Secrets *secret.Resolver
	// Authz is an optional inbound caller identity gate. Left nil, no
	// caller authentication is enforced and Authorize is a no-op.
	Authz *AuthzGate
}

// Validate checks static configuration: non-negative thresholds,
// non-negative retry counts, enumerations. It does not check anything
// that requires an adapter instance (that happens in Start) or
// contact any external system.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("boundary: at least one provider must be configured")
	}
	switch c.Mode {
	case "", ModeLocal, ModeDistributed:
	default:
		return fmt.Errorf("boundary: unknown mode %q", c.Mode)
	}
	if err := validateRetry(c.Defaults.Retry); err != nil {
		return fmt.Errorf("boundary: defaults.retry: %w", err)
	}
	if err := validateBreaker(c.Defaults.CircuitBreaker); err != nil {
		return fmt.Errorf("boundary: defaults.circuitBreaker: %w", err)
	}
	if err := validateRateLimit(c.Defaults.RateLimit); err != nil {
		return fmt.Errorf("boundary: defaults.rateLimit: %w", err)
	}
	if c.Defaults.Timeout < 0 {
		return fmt.Errorf("boundary: defaults.timeout must be non-negative")
	}

	for name, pc := range c.Providers {
		if name == "" {
			return fmt.Errorf("boundary: provider name must not be empty")
		}
		if pc.Retry != nil {
			if err := validateRetry(*pc.Retry); err != nil {
				return fmt.Errorf("boundary: providers[%s].retry: %w", name, err)
			}
		}
		if pc.CircuitBreaker != nil {
			if err := validateBreaker(*pc.CircuitBreaker); err != nil {
				return fmt.Errorf("boundary: providers[%s].circuitBreaker: %w", name, err)
			}
		}
		if pc.RateLimit != nil {
			if err := validateRateLimit(*pc.RateLimit); err != nil {
				return fmt.Errorf("boundary: providers[%s].rateLimit: %w", name, err)
			}
		}
		if pc.Timeout < 0 {
			return fmt.Errorf("boundary: providers[%s].timeout must be non-negative", name)
		}
		for pattern := range pc.IdempotencyOverrides {
			if pattern == "" {
				return fmt.Errorf("boundary: providers[%s].idempotency.operationOverrides key must not be empty", name)
			}
		}
	}

	return nil
}

func validateRetry(r retry.Config) error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be non-negative")
	}
	if r.BaseDelay < 0 || r.MaxDelay < 0 {
		return fmt.Errorf("baseDelay/maxDelay must be non-negative")
	}
	return nil
}

func validateBreaker(b breaker.Config) error {
	if b.FailureThreshold < 0 || b.SuccessThreshold < 0 || b.VolumeThreshold < 0 {
		return fmt.Errorf("thresholds must be non-negative")
	}
	if b.ErrorThresholdPercentage < 0 || b.ErrorThresholdPercentage > 100 {
		return fmt.Errorf("errorThresholdPercentage must be within [0, 100]")
	}
	if b.Timeout < 0 || b.RollingWindow < 0 {
		return fmt.Errorf("timeout/rollingWindowMs must be non-negative")
	}
	return nil
}

func validateRateLimit(r ratelimiter.Config) error {
	if r.Rate < 0 {
		return fmt.Errorf("tokensPerSecond must be non-negative")
	}
	if r.Burst < 0 {
		return fmt.Errorf("maxTokens must be non-negative")
	}
	if r.MaxQueueSize < 0 {
		return fmt.Errorf("queueSize must be non-negative")
	}
	return nil
}
