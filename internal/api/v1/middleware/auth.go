package middleware

import (
	"net/http"
	"strings"

	"github.com/draftwise/draftwise/internal/config"
	"github.com/draftwise/draftwise/pkg/httpext"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// RequireAuth validates a bearer token against the configured secret. When no
// secret is configured the middleware passes requests through unchanged, so
// local development needs no tokens.
func RequireAuth() func(http.Handler) http.Handler {
	secret := config.GetJWTSecret()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == nil {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := extractToken(r)
			if tokenString == "" {
				httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				log.Warn().Err(err).Str("client_ip", r.RemoteAddr).Msg("Invalid bearer token")
				httpext.JsonError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
