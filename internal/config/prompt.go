package config

// GetPromptsPath returns the directory holding prompt markdown files.
func GetPromptsPath() string {
	return GetEnvOrDefault("PROMPTS_PATH", "./prompts")
}

// GetSystemPromptOverride returns an inline system prompt that, when set,
// takes precedence over the prompt files.
func GetSystemPromptOverride() string {
	return GetEnvOrDefault("SYSTEM_PROMPT", "")
}
