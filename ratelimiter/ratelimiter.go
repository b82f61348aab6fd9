// Package ratelimiter implements the per-provider token bucket used by
// the request pipeline: bounded waiting when the bucket is empty (each
// queued caller polls the bucket on its own, so the order in which
// waiters receive tokens is not defined, and a caller arriving while
// others wait may take a refilled token first),
// adaptive throttling driven by provider rate-limit headers, an
// explicit pause window triggered by a 429 response, and a reset
// operation that refills the bucket and rejects queued waiters.
package ratelimiter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/boundary/adapter"
)

// ErrQueueFull is returned by Acquire when the bounded wait queue is
// already at capacity.
var ErrQueueFull = errors.New("ratelimiter: wait queue is full")

// ErrLimiterPaused is returned by Acquire when a 429 pause window is in
// effect, either immediately (no token available and the limiter is
// paused) or while already waiting in the queue, once the pause takes
// effect.
var ErrLimiterPaused = errors.New("ratelimiter: paused after rate-limit response")

// ErrReset is returned to every caller queued in Acquire when Reset is
// called while they wait.
var ErrReset = errors.New("ratelimiter: Rate limiter was reset")

// Config configures a Limiter.
type Config struct {
	// Rate is the number of tokens added per second. Default: 10.
	Rate float64
	// Burst is the bucket capacity. Default: 10.
	Burst int
	// MaxQueueSize bounds how many callers may wait for a token at
	// once; additional callers are rejected immediately. Default: 100.
	MaxQueueSize int
	// PollInterval controls how often a waiting caller rechecks the
	// bucket. Default: 10ms.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Rate <= 0 {
		c.Rate = 10
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	return c
}

// waiter is one caller parked in Acquire's wait queue. resetCh carries
// a single notification if Reset fires while this waiter is parked.
type waiter struct {
	resetCh chan struct{}
}

// Limiter is a token-bucket rate limiter with a bounded wait queue
// (grant order among waiters is not defined), adaptive throttling
// from provider headers, and a pause window
// for explicit 429 backoff.
type Limiter struct {
	config Config

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
	pausedUntil time.Time
	waiters     []*waiter

	providerLimit     int
	providerRemaining int
	providerReset     time.Time
	hasProviderInfo   bool
}

// New creates a Limiter from config, applying defaults for any unset fields.
func New(config Config) *Limiter {
	config = config.withDefaults()
	return &Limiter{
		config:      config,
		tokens:      float64(config.Burst),
		lastRefresh: time.Now(),
	}
}

// Acquire blocks until a token is available, the bounded queue is full
// (ErrQueueFull), the limiter is paused (ErrLimiterPaused), the limiter
// is reset while this call is queued (ErrReset), or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if _, paused := l.activePause(); paused {
		return ErrLimiterPaused
	}
	if l.tryAcquire() {
		return nil
	}

	w, err := l.enqueue()
	if err != nil {
		return err
	}
	defer l.dequeue(w)

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.resetCh:
			return ErrReset
		case <-ticker.C:
			if _, paused := l.activePause(); paused {
				return ErrLimiterPaused
			}
			if l.tryAcquire() {
				return nil
			}
		}
	}
}

// enqueue registers a new waiter, rejecting immediately once the bound
// wait queue is already at capacity.
func (l *Limiter) enqueue() (*waiter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.waiters) >= l.config.MaxQueueSize {
		return nil, ErrQueueFull
	}
	w := &waiter{resetCh: make(chan struct{}, 1)}
	l.waiters = append(l.waiters, w)
	return w, nil
}

// dequeue removes w from the waiter list once it stops waiting, for
// any reason.
func (l *Limiter) dequeue(w *waiter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, cand := range l.waiters {
		if cand == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

// activePause reports whether a 429 pause window is currently in
// effect and how long remains.
func (l *Limiter) activePause() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Now().Before(l.pausedUntil) {
		return time.Until(l.pausedUntil), true
	}
	return 0, false
}

// tryAcquire attempts a non-blocking single-token acquisition.
func (l *Limiter) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

func (l *Limiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefresh)
	l.lastRefresh = now

	l.tokens += elapsed.Seconds() * l.config.Rate

	ceiling := float64(l.config.Burst)
	if l.hasProviderInfo && float64(l.providerRemaining) < ceiling {
		ceiling = float64(l.providerRemaining)
	}
	if l.tokens > ceiling {
		l.tokens = ceiling
	}
}

// UpdateFromHeaders folds a provider's adapter-parsed rate-limit
// snapshot into the limiter's view of remaining capacity. A response
// reporting fewer tokens remaining than the local bucket currently
// believes clamps the bucket down to match -- adaptive throttling in
// response to what the provider actually observed. A non-positive
// Limit means the adapter found nothing usable (its own documented
// default) and leaves the limiter's local bookkeeping untouched.
func (l *Limiter) UpdateFromHeaders(info adapter.RateLimitInfo) {
	if info.Limit <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.hasProviderInfo = true
	l.providerLimit = info.Limit
	l.providerRemaining = info.Remaining
	l.providerReset = info.Reset

	if float64(info.Remaining) < l.tokens {
		l.tokens = float64(info.Remaining)
	}
}

// Handle429 pauses all acquisitions for the given number of seconds,
// per an explicit Retry-After on a 429 response.
func (l *Limiter) Handle429(seconds int) {
	if seconds <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	until := time.Now().Add(time.Duration(seconds) * time.Second)
	if until.After(l.pausedUntil) {
		l.pausedUntil = until
	}
}

// Reset refills the bucket to capacity, clears any pause and
// provider-observed throttling state, and rejects every caller
// currently parked in Acquire with ErrReset.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.tokens = float64(l.config.Burst)
	l.lastRefresh = time.Now()
	l.pausedUntil = time.Time{}
	l.hasProviderInfo = false
	l.providerLimit = 0
	l.providerRemaining = 0
	l.providerReset = time.Time{}
	waiters := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	for _, w := range waiters {
		select {
		case w.resetCh <- struct{}{}:
		default:
		}
	}
}

// Status reports the limiter's current snapshot for observability.
type Status struct {
	Tokens            float64
	ProviderLimit     int
	ProviderRemaining int
	ProviderReset     time.Time
	PausedUntil       time.Time
}

// Status returns a point-in-time snapshot of the limiter's state.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()

	return Status{
		Tokens:            l.tokens,
		ProviderLimit:     l.providerLimit,
		ProviderRemaining: l.providerRemaining,
		ProviderReset:     l.providerReset,
		PausedUntil:       l.pausedUntil,
	}
}
