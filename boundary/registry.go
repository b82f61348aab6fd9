package boundary

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jonwraymond/boundary/adapter"
	"github.com/jonwraymond/boundary/auth"
	"github.com/jonwraymond/boundary/breaker"
	"github.com/jonwraymond/boundary/cerr"
	"github.com/jonwraymond/boundary/idempotency"
	"github.com/jonwraymond/boundary/observe"
	"github.com/jonwraymond/boundary/pipeline"
	"github.com/jonwraymond/boundary/ratelimiter"
	"github.com/jonwraymond/boundary/retry"
	"github.com/jonwraymond/boundary/sanitize"
	"github.com/jonwraymond/boundary/secret"
)

// CircuitStatus is the public snapshot GetCircuitStatus returns.
type CircuitStatus struct {
	State       breaker.State
	Failures    int
	Successes   int
	LastFailure *string
	NextAttempt *string
}

// Boundary is one resilience-gateway instance. Config, the adapter
// map, the pipeline map, circuit breakers, and the built-in adapter
// cache are instance-scoped; nothing here is process-global except the
// default built-in adapter factory registry, which only holds recipes,
// never instances.
type Boundary struct {
	cfg     Config
	started atomic.Bool

	mu        sync.RWMutex
	pipelines map[string]*pipeline.Pipeline
	breakers  map[string]*breaker.Breaker
	builtins  *builtinCache

	broadcaster *observe.Broadcaster
}

// New validates cfg synchronously and returns an unstarted Boundary.
// RegisterProvider and every per-provider method fail with
// ErrNotStarted until Start completes.
func New(cfg Config) (*Boundary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Observability.Logger
	if logger == nil {
		logger = observe.NewNoopLogger()
	}
	if cfg.Secrets == nil {
		cfg.Secrets = secret.NewResolver(true)
	}

	return &Boundary{
		cfg:         cfg,
		pipelines:   make(map[string]*pipeline.Pipeline),
		breakers:    make(map[string]*breaker.Breaker),
		builtins:    newBuiltinCache(),
		broadcaster: observe.NewBroadcaster(logger, cfg.Observability.Sinks...),
	}, nil
}

// Start validates every provider's adapter (including an awaited
// sentinel AuthStrategy probe) and instantiates each provider's
// pipeline, in lexical order of provider name. It blocks while adapter
// validation awaits AuthStrategy. Calling Start twice returns
// ErrAlreadyStarted; any error here leaves the Boundary unstarted.
func (b *Boundary) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if b.cfg.StateStorage == nil && !b.stateStorageOptional() {
		b.started.Store(false)
		return ErrStateStorageRequired
	}
	if b.cfg.StateStorage == nil && b.cfg.Mode != ModeDistributed && b.cfg.LocalUnsafe {
		b.broadcaster.EmitWarning(ctx, "running without state storage (localUnsafe)", map[string]any{
			"mode": string(b.cfg.Mode),
		})
	}

	names := make([]string, 0, len(b.cfg.Providers))
	for name := range b.cfg.Providers {
		names = append(names, name)
	}

	for _, name := range orderedProviderNames(b.cfg.Providers, names) {
		pc := b.cfg.Providers[name]
		if err := b.buildPipeline(ctx, name, pc); err != nil {
			b.started.Store(false)
			return fmt.Errorf("boundary: starting provider %q: %w", name, err)
		}
	}

	return nil
}

// stateStorageOptional reports whether the absence of StateStorage is
// tolerated for the configured mode.
func (b *Boundary) stateStorageOptional() bool {
	if b.cfg.Mode == ModeDistributed {
		return false
	}
	return b.cfg.LocalUnsafe
}

// buildPipeline resolves (or builds) pc's adapter, validates it,
// constructs its owned strategy stack, and registers the resulting
// pipeline and circuit breaker under name.
func (b *Boundary) buildPipeline(ctx context.Context, name string, pc ProviderConfig) error {
	a := pc.Adapter
	if a == nil {
		built, err := b.builtins.get(name)
		if err != nil {
			return err
		}
		a = built
	}

	if err := adapter.Validate(ctx, a); err != nil {
		return fmt.Errorf("adapter validation failed: %w", err)
	}

	auth, err := b.resolveAuth(ctx, pc.Auth)
	if err != nil {
		return fmt.Errorf("resolving auth config: %w", err)
	}

	retryCfg := b.cfg.Defaults.Retry
	if pc.Retry != nil {
		retryCfg = *pc.Retry
	}
	breakerCfg := b.cfg.Defaults.CircuitBreaker
	if pc.CircuitBreaker != nil {
		breakerCfg = *pc.CircuitBreaker
	}
	rateLimitCfg := b.cfg.Defaults.RateLimit
	if pc.RateLimit != nil {
		rateLimitCfg = *pc.RateLimit
	}
	timeout := b.cfg.Defaults.Timeout
	if pc.Timeout > 0 {
		timeout = pc.Timeout
	}

	idempCfg := a.GetIdempotencyConfig()
	overrides := mergeOverrides(idempCfg.OperationOverrides, pc.IdempotencyOverrides)

	br := breaker.New(breakerCfg)

	pl := pipeline.New(pipeline.Config{
		Provider:    name,
		BaseURL:     pc.BaseURL,
		Adapter:     a,
		AuthConfig:  auth,
		RateLimiter: ratelimiter.New(rateLimitCfg),
		Breaker:     br,
		Retry:       retry.New(retryCfg),
		Idempotency: idempotency.NewResolver(idempotency.Config{
			DefaultSafeOperations: idempCfg.DefaultSafeOperations,
			OperationOverrides:    overrides,
			DefaultLevel:          b.cfg.Idempotency.DefaultLevel,
		}),
		Mapper:                      cerr.NewMapper(b.cfg.ObservabilitySanitizer.RedactedKeys...),
		Sanitizer:                   sanitize.NewRequestSanitizer(b.cfg.ObservabilitySanitizer.RedactedKeys...),
		Broadcaster:                 b.broadcaster,
		Tracer:                      b.cfg.Observability.Tracer,
		Metrics:                     b.cfg.Observability.Metrics,
		Logger:                      b.cfg.Observability.Logger,
		DefaultTimeout:              timeout,
		NewRequestID:                func() string { return uuid.NewString() },
		AutoGenerateIdempotencyKeys: b.cfg.Idempotency.AutoGenerateKeys,
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pipelines[name] = pl
	b.breakers[name] = br
	return nil
}

// resolveAuth expands any "secretref:<provider>:<ref>" or "${VAR}"
// environment reference inside cfg's Token/Credentials before it
// reaches an adapter's AuthStrategy, per the configuration's secret.
// Resolver.
func (b *Boundary) resolveAuth(ctx context.Context, cfg adapter.AuthConfig) (adapter.AuthConfig, error) {
	token, err := b.cfg.Secrets.ResolveValue(ctx, cfg.Token)
	if err != nil {
		return adapter.AuthConfig{}, err
	}
	creds, err := b.cfg.Secrets.ResolveMap(ctx, cfg.Credentials)
	if err != nil {
		return adapter.AuthConfig{}, err
	}
	return adapter.AuthConfig{Token: token, Credentials: creds, Sentinel: cfg.Sentinel}, nil
}

// mergeOverrides layers instance-level provider overrides on top of
// the adapter's own, instance-level entries winning on key collision.
func mergeOverrides(base, extra map[string]idempotency.Level) map[string]idempotency.Level {
	merged := make(map[string]idempotency.Level, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// orderedProviderNames returns names in a deterministic order. A Go
// map has no inherent iteration order to preserve, so "in order" is
// implementation-defined here as lexical order.
func orderedProviderNames(providers map[string]ProviderConfig, names []string) []string {
	_ = providers
	sort.Strings(names)
	return names
}

// RegisterProvider adds a new provider after Start has completed,
// reusing the same validation and pipeline-build path Start uses.
func (b *Boundary) RegisterProvider(ctx context.Context, name string, a adapter.Adapter, pc ProviderConfig) error {
	if !b.started.Load() {
		return ErrNotStarted
	}
	pc.Adapter = a
	return b.buildPipeline(ctx, name, pc)
}

// Provider returns the pipeline registered under name.
func (b *Boundary) Provider(name string) (*pipeline.Pipeline, error) {
	if !b.started.Load() {
		return nil, ErrNotStarted
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	pl, ok := b.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return pl, nil
}

// GetCircuitStatus returns provider's circuit breaker snapshot.
func (b *Boundary) GetCircuitStatus(name string) (CircuitStatus, error) {
	if !b.started.Load() {
		return CircuitStatus{}, ErrNotStarted
	}
	b.mu.RLock()
	br, ok := b.breakers[name]
	b.mu.RUnlock()
	if !ok {
		return CircuitStatus{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	status := br.Status()
	cs := CircuitStatus{State: status.State, Failures: status.Failures, Successes: status.Successes}
	if !status.LastFailure.IsZero() {
		s := status.LastFailure.Format(timeFormat)
		cs.LastFailure = &s
	}
	if !status.NextAttempt.IsZero() {
		s := status.NextAttempt.Format(timeFormat)
		cs.NextAttempt = &s
	}
	return cs, nil
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Get issues a GET call against provider.
func (b *Boundary) Get(ctx context.Context, provider, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, error) {
	options.Method = "GET"
	return b.do(ctx, provider, endpoint, options)
}

// Post issues a POST call against provider.
func (b *Boundary) Post(ctx context.Context, provider, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, error) {
	options.Method = "POST"
	return b.do(ctx, provider, endpoint, options)
}

// Put issues a PUT call against provider.
func (b *Boundary) Put(ctx context.Context, provider, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, error) {
	options.Method = "PUT"
	return b.do(ctx, provider, endpoint, options)
}

// Patch issues a PATCH call against provider.
func (b *Boundary) Patch(ctx context.Context, provider, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, error) {
	options.Method = "PATCH"
	return b.do(ctx, provider, endpoint, options)
}

// Delete issues a DELETE call against provider.
func (b *Boundary) Delete(ctx context.Context, provider, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, error) {
	options.Method = "DELETE"
	return b.do(ctx, provider, endpoint, options)
}

func (b *Boundary) do(ctx context.Context, provider, endpoint string, options adapter.RequestOptions) (adapter.NormalizedResponse, error) {
	pl, err := b.Provider(provider)
	if err != nil {
		return adapter.NormalizedResponse{}, err
	}
	return pl.Do(ctx, endpoint, options)
}

// Authorize runs the optional inbound caller gate, if one was
// configured; otherwise it returns ctx unchanged. Call before
// Get/Post/.../Paginate when the host application wants to restrict
// which callers may invoke which action on which provider.
func (b *Boundary) Authorize(ctx context.Context, req *auth.AuthRequest, provider, action string) (context.Context, error) {
	if b.cfg.Authz == nil {
		return ctx, nil
	}
	return b.cfg.Authz.Authorize(ctx, req, provider, action)
}

// Paginate returns a lazy, finite, non-restartable sequence of pages
// starting at endpoint/options against provider.
func (b *Boundary) Paginate(ctx context.Context, provider, endpoint string, options adapter.RequestOptions) (*pipeline.PageIterator, error) {
	pl, err := b.Provider(provider)
	if err != nil {
		return nil, err
	}
	return pl.Paginate(ctx, endpoint, options), nil
}
