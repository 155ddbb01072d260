package config

import (
	"strings"
	"time"
)

// RateLimitConfig describes one named rate limit window.
type RateLimitConfig struct {
	Enabled bool
	Window  time.Duration
	MaxHits int
}

// GetRateLimitConfig returns the rate limit configuration for a named
// endpoint group, e.g. "advice". Environment keys are derived from the name:
// RATE_LIMIT_ADVICE_WINDOW, RATE_LIMIT_ADVICE_MAX_HITS, RATE_LIMIT_ADVICE_ENABLED.
func GetRateLimitConfig(name string) RateLimitConfig {
	prefix := "RATE_LIMIT_" + strings.ToUpper(name)
	return RateLimitConfig{
		Enabled: GetEnvBool(prefix+"_ENABLED", true),
		Window:  GetEnvDuration(prefix+"_WINDOW", time.Minute),
		MaxHits: GetEnvInt(prefix+"_MAX_HITS", 30),
	}
}
