// Package statestore defines the optional external state storage
// interface a distributed deployment can supply so circuit breaker and
// rate limiter state can be shared across process instances. The
// core's own in-memory strategy components never require it; its
// presence is gated entirely by BoundaryConfig's mode and localUnsafe
// flag at registry startup.
package statestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/boundary/cache"
)

// StateStorage is the opaque get/set-with-ttl/del contract the
// registry consumes. The interface must be present for distributed
// mode to be configurable; whether any strategy component actually
// persists through it is optional and implementation-defined.
type StateStorage interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheBacked adapts a cache.Cache into a StateStorage, so the same
// in-memory or external cache implementations that back response
// caching can back distributed breaker/limiter state.
type CacheBacked struct {
	cache cache.Cache
}

// NewCacheBacked wraps c as a StateStorage.
func NewCacheBacked(c cache.Cache) *CacheBacked {
	return &CacheBacked{cache: c}
}

func (s *CacheBacked) Get(ctx context.Context, key string) ([]byte, bool) {
	return s.cache.Get(ctx, key)
}

func (s *CacheBacked) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, key, value, ttl)
}

func (s *CacheBacked) Delete(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

// keyer derives the hash suffix of DeriveKey's output; reused across
// calls since DefaultKeyer carries no state.
var keyer = cache.NewDefaultKeyer()

// DeriveKey derives a deterministic state storage key for a
// provider/component pair and arbitrary canonicalizable input, in the
// shape "boundary:<provider>:<component>:<hash>", reusing the same
// content-addressed hashing scheme as the cache package's own keys.
func DeriveKey(provider, component string, input any) (string, error) {
	raw, err := keyer.Key(component, input)
	if err != nil {
		return "", err
	}
	hash := strings.TrimPrefix(raw, "cache:"+component+":")
	return fmt.Sprintf("boundary:%s:%s:%s", provider, component, hash), nil
}

// NewInMemory builds a StateStorage backed by an unbounded in-process
// cache. Suitable for local/single-instance deployments and tests;
// state does not survive a process restart.
func NewInMemory() StateStorage {
	return NewCacheBacked(cache.NewMemoryCache(cache.Policy{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour}))
}
