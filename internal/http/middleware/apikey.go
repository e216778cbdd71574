package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/synura/agency-api/internal/apikeys"
	"github.com/synura/agency-api/pkg/logging"
)

const apiKeyIDKey contextKey = "apiKeyID"

// KeyAuthenticator resolves an API key to its key id.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, key string) (string, error)
}

// APIKey authenticates an API key from the Authorization bearer token or the
// X-API-Key header. Requests without a key pass through anonymously; a key
// that is presented must be valid.
func APIKey(auth KeyAuthenticator, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := presentedKey(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			keyID, err := auth.Authenticate(r.Context(), key)
			if apikeys.IsInvalid(err) {
				writeAuthError(w, http.StatusUnauthorized, "Invalid API key",
					"The provided API key is invalid or has been deactivated")
				return
			}
			if err != nil {
				logger.Error("api key authentication failed", "error", err)
				writeAuthError(w, http.StatusInternalServerError, "Authentication error",
					"An error occurred during authentication")
				return
			}
			reportKeyID(r.Context(), keyID)
			next.ServeHTTP(w, r.WithContext(WithAPIKeyID(r.Context(), keyID)))
		})
	}
}

func presentedKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func writeAuthError(w http.ResponseWriter, status int, title, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": title, "message": msg})
}

// WithAPIKeyID returns ctx carrying the authenticated key id.
func WithAPIKeyID(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, apiKeyIDKey, keyID)
}

// APIKeyIDFromContext returns the authenticated key id, if any.
func APIKeyIDFromContext(ctx context.Context) (string, bool) {
	keyID, ok := ctx.Value(apiKeyIDKey).(string)
	return keyID, ok && keyID != ""
}
