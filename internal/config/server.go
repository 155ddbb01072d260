package config

import "time"

// GetServerAddr returns the listen address for the HTTP server.
func GetServerAddr() string {
	return GetEnvOrDefault("SERVER_ADDR", ":8080")
}

// GetFirstByteTimeout bounds the wait for the first chunk from the upstream
// model before the stream is failed with a timeout error.
func GetFirstByteTimeout() time.Duration {
	return GetEnvDuration("STREAM_FIRST_BYTE_TIMEOUT", 30*time.Second)
}

// GetStreamIdleTimeout bounds the wait between successive upstream chunks.
func GetStreamIdleTimeout() time.Duration {
	return GetEnvDuration("STREAM_IDLE_TIMEOUT", 20*time.Second)
}
