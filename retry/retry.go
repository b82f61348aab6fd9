// Package retry implements the pipeline's safety-inverted retry
// strategy: a retry is attempted only when the attempt budget remains,
// the failing error explicitly marks itself retryable, and the
// operation's idempotency has been proven safe. Backoff timing is
// built on sethvargo/go-retry's exponential, capped Backoff; the
// optional jitter is added by this package, and the total delay is
// capped at MaxDelay.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonwraymond/boundary/idempotency"
	sethretry "github.com/sethvargo/go-retry"
)

// retryableError is implemented by errors that carry an explicit,
// non-inferred retryability bit -- cerr.CanonicalError satisfies it.
type retryableError interface {
	error
	IsRetryable() bool
}

// Config configures a Strategy.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Default: 0 (no retries unless explicitly opted into).
	MaxRetries int
	// BaseDelay is the delay before the first retry. Default: 100ms.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay. Default: 30s.
	MaxDelay time.Duration
	// Jitter adds a uniform random delay in [0, 1000ms] on top of the
	// exponential schedule when enabled. Off unless set explicitly.
	Jitter bool
	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

// maxJitter is the upper bound of the uniform jitter window the
// delay schedule adds on top of the exponential backoff.
const maxJitter = time.Second

// Strategy is the safety-inverted retry strategy.
type Strategy struct {
	config Config
}

// New creates a Strategy from config, applying defaults for unset fields.
func New(config Config) *Strategy {
	return &Strategy{config: config.withDefaults()}
}

// Execute runs op, retrying according to the gating rule: retry only if
// attempts remain, the error reports IsRetryable()==true, and level/
// hasKey prove the operation idempotent per idempotency.IsRetrySafe.
// Any error failing the gate is returned immediately without a retry.
//
// The exponential/capped schedule comes from go-retry's Backoff; this
// strategy drives it directly (rather than via sethretry.Do) so it can
// gate each failure on retryability and idempotency before deciding
// whether to consume the next backoff step at all.
func (s *Strategy) Execute(ctx context.Context, level idempotency.Level, hasKey bool, op func(context.Context) error) error {
	backoff, err := sethretry.NewExponential(s.config.BaseDelay)
	if err != nil {
		return err
	}
	backoff = sethretry.WithCappedDuration(s.config.MaxDelay, backoff)
	backoff = sethretry.WithMaxRetries(uint64(s.config.MaxRetries), backoff)

	attempt := 0
	for {
		opErr := op(ctx)
		if opErr == nil {
			return nil
		}
		if !s.gate(opErr, level, hasKey) {
			return opErr
		}

		delay, stop := backoff.Next()
		if stop {
			return opErr
		}
		attempt++
		delay = s.withJitter(delay)
		if delay > s.config.MaxDelay {
			delay = s.config.MaxDelay
		}

		if s.config.OnRetry != nil {
			s.config.OnRetry(attempt, opErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// gate applies the three-part safety-inversion rule: the error must
// explicitly claim retryability, and the operation's idempotency level
// (with hasKey for the CONDITIONAL case) must permit a retry.
func (s *Strategy) gate(err error, level idempotency.Level, hasKey bool) bool {
	re, ok := err.(retryableError)
	if !ok || !re.IsRetryable() {
		return false
	}
	return idempotency.IsRetrySafe(level, hasKey)
}

// withJitter adds a uniform [0, 1000ms] jitter on top of the capped
// exponential delay go-retry computed for this attempt.
func (s *Strategy) withJitter(delay time.Duration) time.Duration {
	if !s.config.Jitter {
		return delay
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return delay + time.Duration(rand.Int64N(int64(maxJitter)))
}
