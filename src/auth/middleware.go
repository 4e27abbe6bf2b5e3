package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// Middleware rejects requests without a valid bearer token and stores the
// resolved user under UserKey.
func Middleware(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				unauthorized(w, "authorization header required")
				return
			}

			user, err := verifier.Parse(token)
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"component": "auth",
					"path":      r.URL.Path,
				}).WithError(err).Warn("Token validation failed")

				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
