package boundary

import (
	"testing"

	"github.com/jonwraymond/boundary/idempotency"
	"github.com/jonwraymond/boundary/retry"
)

func TestConfig_Validate_RejectsNegativeRetryCount(t *testing.T) {
	cfg := Config{
		Providers: map[string]ProviderConfig{"acme": {BaseURL: "http://example.invalid"}},
		Defaults:  DefaultsConfig{Retry: retry.Config{MaxRetries: -1}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative MaxRetries")
	}
}

func TestConfig_Validate_RejectsEmptyProviderName(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderConfig{"": {BaseURL: "http://example.invalid"}}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty provider name")
	}
}

func TestConfig_Validate_RejectsEmptyIdempotencyOverrideKey(t *testing.T) {
	cfg := Config{
		Providers: map[string]ProviderConfig{
			"acme": {
				BaseURL:              "http://example.invalid",
				IdempotencyOverrides: map[string]idempotency.Level{"": idempotency.Safe},
			},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty idempotency override key")
	}
}

func TestConfig_Validate_AcceptsMinimalConfig(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderConfig{"acme": {BaseURL: "http://example.invalid"}}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestConfig_Validate_RejectsBadErrorThresholdPercentage(t *testing.T) {
	cfg := Config{
		Providers: map[string]ProviderConfig{"acme": {BaseURL: "http://example.invalid"}},
	}
	cfg.Defaults.CircuitBreaker.ErrorThresholdPercentage = 150
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range errorThresholdPercentage")
	}
}
