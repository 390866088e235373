package auth

import (
	"net/http"
	"strings"

	"evergreen/src/security"

	logger "github.com/sirupsen/logrus"
)

// RequireToken rejects requests whose bearer token does not match tokenHash.
// With an empty tokenHash every request passes as an anonymous caller.
func RequireToken(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || !security.CheckToken(tokenHash, token) {
				logger.WithFields(map[string]interface{}{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Warn("rejected unauthenticated API request")
				w.Header().Set("WWW-Authenticate", `Bearer realm="evergreen"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), APITokenCaller)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
