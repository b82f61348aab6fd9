package statestore

import (
	"context"
	"testing"
	"time"
)

func TestInMemory_RoundTrips(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, ok := s.Get(ctx, "missing"); ok {
		t.Fatal("expected miss on unset key")
	}

	if err := s.Set(ctx, "breaker:github", []byte("open"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok := s.Get(ctx, "breaker:github")
	if !ok || string(v) != "open" {
		t.Errorf("Get = (%q, %v), want (open, true)", v, ok)
	}

	if err := s.Delete(ctx, "breaker:github"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(ctx, "breaker:github"); ok {
		t.Error("expected miss after delete")
	}
}

func TestInMemory_ZeroTTLDoesNotPersist(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), 0)
	if _, ok := s.Get(ctx, "k"); ok {
		t.Error("expected zero-TTL set to not persist")
	}
}
