package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"notevault/internal/auth"
	"notevault/internal/httputil"
	"notevault/internal/metrics"
)

// publicPaths are served without an identity
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// AuthMiddleware resolves the bearer token to the owning user and stores the
// user ID in the request context. Requests without a valid token get a 401.
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				metrics.TrackAuthAttempt("failure")
				unauthorized(w, "missing or invalid authorization header")
				return
			}

			claims, err := verifier.VerifyToken(tokenString)
			if err != nil {
				metrics.TrackAuthAttempt("failure")
				logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				unauthorized(w, "invalid token")
				return
			}

			metrics.TrackAuthAttempt("success")
			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

// DevAuth attributes every request to a fixed user. Only wired in dev.
func DevAuth(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, httputil.WithUserID(r, userID))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httputil.RespondErrorWithExtras(w, http.StatusUnauthorized, detail, map[string]interface{}{
		"code": "UNAUTHORIZED",
	})
}
