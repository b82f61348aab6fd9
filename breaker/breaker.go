// Package breaker implements the per-provider circuit breaker: a
// three-state machine (closed/open/half-open) that opens on either a
// run of consecutive failures or an elevated error rate within a
// rolling window, and recovers through a bounded half-open probe.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when a call is rejected because the breaker is
// open, or because a half-open probe slot is already occupied.
var ErrOpen = errors.New("breaker: circuit is open")

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configures a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit outright. Default: 5.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive half-open
	// successes required to close the circuit. Default: 1.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before admitting a
	// half-open probe. Default: 30s.
	Timeout time.Duration
	// VolumeThreshold is the minimum number of samples in the rolling
	// window before the error-rate criterion can open the circuit.
	// Default: 20.
	VolumeThreshold int
	// RollingWindow is the duration over which samples are kept for
	// the error-rate criterion. Default: 10s.
	RollingWindow time.Duration
	// ErrorThresholdPercentage is the error rate (0-100) within the
	// rolling window that opens the circuit once VolumeThreshold is
	// met. Default: 50.
	ErrorThresholdPercentage float64
	// OnStateChange is called whenever the state transitions.
	OnStateChange func(from, to State)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = 20
	}
	if c.RollingWindow <= 0 {
		c.RollingWindow = 10 * time.Second
	}
	if c.ErrorThresholdPercentage <= 0 {
		c.ErrorThresholdPercentage = 50
	}
	return c
}

type sample struct {
	at      time.Time
	failure bool
}

// Breaker is a per-provider circuit breaker.
type Breaker struct {
	config Config

	mu               sync.Mutex
	state            State
	consecutiveFails int
	consecutiveOK    int
	lastTransition   time.Time
	halfOpenOccupied bool
	samples          []sample
}

// New creates a Breaker from config, applying defaults for unset fields.
func New(config Config) *Breaker {
	return &Breaker{
		config:         config.withDefaults(),
		state:          StateClosed,
		lastTransition: time.Now(),
	}
}

// Execute runs op through the breaker: rejected immediately with
// ErrOpen while open or while a half-open probe is in flight,
// otherwise run and its outcome recorded.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := op(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTimeoutLocked()

	switch b.state {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.halfOpenOccupied {
			return ErrOpen
		}
		b.halfOpenOccupied = true
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failure := err != nil
	b.recordSampleLocked(failure)

	switch b.state {
	case StateHalfOpen:
		b.halfOpenOccupied = false
		if failure {
			b.transitionLocked(StateOpen)
			return
		}
		b.consecutiveOK++
		if b.consecutiveOK >= b.config.SuccessThreshold {
			b.consecutiveFails = 0
			b.consecutiveOK = 0
			b.transitionLocked(StateClosed)
		}

	case StateClosed:
		if failure {
			b.consecutiveFails++
			if b.shouldOpenLocked() {
				b.transitionLocked(StateOpen)
			}
		} else {
			b.consecutiveFails = 0
		}
	}
}

// shouldOpenLocked evaluates the open criteria: a consecutive-failure
// run at or past threshold, or a rolling-window sample count and error
// rate both at or past their thresholds.
func (b *Breaker) shouldOpenLocked() bool {
	if b.consecutiveFails >= b.config.FailureThreshold {
		return true
	}

	total, failures := b.windowCountsLocked()
	if total < b.config.VolumeThreshold {
		return false
	}
	rate := float64(failures) / float64(total) * 100
	return rate >= b.config.ErrorThresholdPercentage
}

func (b *Breaker) recordSampleLocked(failure bool) {
	now := time.Now()
	b.samples = append(b.samples, sample{at: now, failure: failure})
	b.pruneSamplesLocked(now)
}

func (b *Breaker) pruneSamplesLocked(now time.Time) {
	cutoff := now.Add(-b.config.RollingWindow)
	i := 0
	for i < len(b.samples) && b.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.samples = append([]sample{}, b.samples[i:]...)
	}
}

func (b *Breaker) windowCountsLocked() (total, failures int) {
	b.pruneSamplesLocked(time.Now())
	total = len(b.samples)
	for _, s := range b.samples {
		if s.failure {
			failures++
		}
	}
	return total, failures
}

// maybeTimeoutLocked moves an OPEN breaker into HALF_OPEN once Timeout
// has elapsed since it opened.
func (b *Breaker) maybeTimeoutLocked() {
	if b.state == StateOpen && time.Since(b.lastTransition) >= b.config.Timeout {
		b.transitionLocked(StateHalfOpen)
	}
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.lastTransition = time.Now()
	if to == StateHalfOpen {
		b.halfOpenOccupied = false
		b.consecutiveOK = 0
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}

// State returns the current state, resolving a timed-out OPEN window
// into HALF_OPEN first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTimeoutLocked()
	return b.state
}

// Reset forces the breaker back to closed, clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	b.consecutiveOK = 0
	b.samples = nil
	b.transitionLocked(StateClosed)
}

// Status reports a point-in-time snapshot for observability and the
// getCircuitStatus API surface.
type Status struct {
	State       State
	Failures    int
	Successes   int
	LastFailure time.Time
	NextAttempt time.Time
}

// Status returns the breaker's current snapshot.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTimeoutLocked()

	status := Status{
		State:     b.state,
		Failures:  b.consecutiveFails,
		Successes: b.consecutiveOK,
	}
	if b.state == StateOpen {
		status.NextAttempt = b.lastTransition.Add(b.config.Timeout)
	}
	for i := len(b.samples) - 1; i >= 0; i-- {
		if b.samples[i].failure {
			status.LastFailure = b.samples[i].at
			break
		}
	}
	return status
}
