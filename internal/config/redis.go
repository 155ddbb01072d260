package config

import (
	"github.com/rs/zerolog/log"
)

// GetRedisURL returns the Redis connection URL, empty when not configured.
// Redis is optional; the history store falls back to process memory.
func GetRedisURL() string {
	value := GetEnvOrDefault("REDIS_URL", "")
	if value == "" {
		log.Debug().Msg("Redis URL not set - conversation history will use the in-memory store")
	}
	return value
}

// GetRedisPassword returns the Redis password, empty when not configured.
func GetRedisPassword() string {
	return GetEnvOrDefault("REDIS_PASSWORD", "")
}
