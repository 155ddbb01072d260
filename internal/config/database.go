package config

// GetConfidenceDBPath returns the SQLite file backing the confidence log.
func GetConfidenceDBPath() string {
	return GetEnvOrDefault("CONFIDENCE_DB_PATH", "./confidence_logs.db")
}
