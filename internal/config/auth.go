package config

// GetJWTSecret returns the secret used to verify API bearer tokens. When
// empty, the auth middleware is a no-op and the API is open.
func GetJWTSecret() []byte {
	secret := GetEnvOrDefault("API_JWT_SECRET", "")
	if secret == "" {
		return nil
	}
	return []byte(secret)
}
