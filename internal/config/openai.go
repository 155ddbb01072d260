package config

// GetOpenAIKey returns the OpenAI API key. Empty when not configured; the
// OpenAI service treats that as fatal at startup.
func GetOpenAIKey() string {
	return GetEnvOrDefault("OPENAI_API_KEY", "")
}

// GetDefaultModel returns the model used when a request does not name one.
func GetDefaultModel() string {
	return GetEnvOrDefault("OPENAI_MODEL", "gpt-4.1")
}
