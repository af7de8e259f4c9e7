package client

import (
	"time"

	"github.com/kbukum/cachekit/config"
	"github.com/kbukum/cachekit/observability"
	"github.com/kbukum/cachekit/resilience"
	"github.com/kbukum/cachekit/validation"
)

// CacheConfig configures the client's read-through cache.
type CacheConfig struct {
	// DefaultTTL applies to values stored by Get. 0 stores without expiry.
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl" validate:"gte=0"`
	// MaxEntries bounds the cache with LRU eviction. 0 means unbounded.
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries" validate:"gte=0"`
}

// Config configures a Client.
//
//	name: users
//	cache:
//	  default_ttl: 5m
//	retry:
//	  max_retries: 3
//	  base_delay: 100ms
//	breaker:
//	  failure_threshold: 5
//	  recovery_timeout: 30s
//	rate_limit:
//	  max_requests: 100
//	  window: 1s
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Cache     CacheConfig                     `yaml:"cache" mapstructure:"cache"`
	Retry     resilience.RetryPolicy          `yaml:"retry" mapstructure:"retry"`
	Breaker   resilience.CircuitBreakerConfig `yaml:"breaker" mapstructure:"breaker"`
	RateLimit resilience.RateLimiterConfig    `yaml:"rate_limit" mapstructure:"rate_limit"`
	// Bulkhead caps concurrent loads. MaxConcurrent 0 disables it.
	Bulkhead      resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
	Observability observability.Config      `yaml:"observability" mapstructure:"observability"`
}

// DefaultConfig returns a complete configuration for a client called name.
func DefaultConfig(name string) Config {
	cfg := Config{
		ServiceConfig: config.ServiceConfig{Name: name},
		Cache:         CacheConfig{DefaultTTL: 5 * time.Minute},
		Retry:         resilience.DefaultRetryPolicy(),
		Breaker:       resilience.DefaultCircuitBreakerConfig(name),
		RateLimit:     resilience.DefaultRateLimiterConfig(name),
	}
	cfg.ApplyDefaults()
	return cfg
}

// Defaults returns DefaultConfig as dotted keys for config.WithDefaults, so
// values absent from the file and the environment keep their defaults.
func Defaults(name string) map[string]interface{} {
	d := DefaultConfig(name)
	return map[string]interface{}{
		"name":                      d.Name,
		"environment":               d.Environment,
		"cache.default_ttl":         d.Cache.DefaultTTL,
		"retry.max_retries":         d.Retry.MaxRetries,
		"retry.base_delay":          d.Retry.BaseDelay,
		"retry.max_delay":           d.Retry.MaxDelay,
		"retry.jitter_ratio":        d.Retry.JitterRatio,
		"breaker.failure_threshold": d.Breaker.FailureThreshold,
		"breaker.recovery_timeout":  d.Breaker.RecoveryTimeout,
		"rate_limit.max_requests":   d.RateLimit.MaxRequests,
		"rate_limit.window":         d.RateLimit.Window,
		"observability.sample_rate": 1.0,
		"observability.endpoint":    "localhost:4318",
		"observability.interval":    15 * time.Second,
		"logging.level":             d.Logging.Level,
		"logging.format":            d.Logging.Format,
	}
}

// ApplyDefaults fills zero values that have no useful zero meaning and names
// the resilience components after the client.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.Breaker.Name == "" {
		c.Breaker.Name = c.Name
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.RecoveryTimeout == 0 {
		c.Breaker.RecoveryTimeout = 30 * time.Second
	}

	if c.RateLimit.Name == "" {
		c.RateLimit.Name = c.Name
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 100
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Second
	}

	if c.Bulkhead.Name == "" {
		c.Bulkhead.Name = c.Name
	}
}

// Validate checks struct tags and the rules that span fields.
func (c *Config) Validate() error {
	v := validation.New()
	v.Merge("config", c.ServiceConfig.Validate())
	v.Merge("config", validation.Validate(c))
	v.AtMost("retry.base_delay", c.Retry.BaseDelay, c.Retry.MaxDelay, "retry.max_delay")
	return v.Err()
}
