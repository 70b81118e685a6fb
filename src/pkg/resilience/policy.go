package resilience

import (
	"time"

	"receipt-impact/src/pkg/config"
)

// Config is read from the "resilience" section; durations are milliseconds.
type Config struct {
	RetryMaxAttempts      int     `json:"retry_max_attempts,omitempty"`
	RetryInitialBackoffMs int     `json:"retry_initial_backoff_ms,omitempty"`
	RetryMaxBackoffMs     int     `json:"retry_max_backoff_ms,omitempty"`
	RetryMultiplier       float64 `json:"retry_multiplier,omitempty"`

	BreakerDisabled         bool    `json:"breaker_disabled,omitempty"`
	BreakerMinRequests      uint32  `json:"breaker_min_requests,omitempty"`
	BreakerFailureRatio     float64 `json:"breaker_failure_ratio,omitempty"`
	BreakerOpenTimeoutMs    int     `json:"breaker_open_timeout_ms,omitempty"`
	BreakerHalfOpenMaxCalls uint32  `json:"breaker_half_open_max_calls,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		RetryMaxAttempts:      3,
		RetryInitialBackoffMs: 200,
		RetryMaxBackoffMs:     2000,
		RetryMultiplier:       2.0,

		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeoutMs:    30000,
		BreakerHalfOpenMaxCalls: 2,
	}
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}

// policy is Config with durations resolved and out-of-range values repaired.
type policy struct {
	retryMaxAttempts    int
	retryInitialBackoff time.Duration
	retryMaxBackoff     time.Duration
	retryMultiplier     float64

	breakerEnabled          bool
	breakerMinRequests      uint32
	breakerFailureRatio     float64
	breakerOpenTimeout      time.Duration
	breakerHalfOpenMaxCalls uint32
}

func (c Config) policy() policy {
	def := DefaultValueConfig()
	out := c

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoffMs <= 0 {
		out.RetryInitialBackoffMs = def.RetryInitialBackoffMs
	}
	if out.RetryMaxBackoffMs <= 0 {
		out.RetryMaxBackoffMs = def.RetryMaxBackoffMs
	}
	if out.RetryMaxBackoffMs < out.RetryInitialBackoffMs {
		out.RetryMaxBackoffMs = out.RetryInitialBackoffMs
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeoutMs <= 0 {
		out.BreakerOpenTimeoutMs = def.BreakerOpenTimeoutMs
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return policy{
		retryMaxAttempts:        out.RetryMaxAttempts,
		retryInitialBackoff:     time.Duration(out.RetryInitialBackoffMs) * time.Millisecond,
		retryMaxBackoff:         time.Duration(out.RetryMaxBackoffMs) * time.Millisecond,
		retryMultiplier:         out.RetryMultiplier,
		breakerEnabled:          !out.BreakerDisabled,
		breakerMinRequests:      out.BreakerMinRequests,
		breakerFailureRatio:     out.BreakerFailureRatio,
		breakerOpenTimeout:      time.Duration(out.BreakerOpenTimeoutMs) * time.Millisecond,
		breakerHalfOpenMaxCalls: out.BreakerHalfOpenMaxCalls,
	}
}
