package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"notevault/internal/httputil"
	"notevault/internal/metrics"
)

// Recovery turns a handler panic into a 500 problem response. Mount it
// between auth and Metrics: the caller's user ID is then in the context,
// and the matched route pattern is set on r by the time the panic unwinds.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				route := r.Pattern
				if route == "" {
					route = "unmatched"
				}
				metrics.TrackPanic(r.Method, route)

				userID := httputil.GetUserID(r)
				logger.Error("panic recovered",
					"error", err,
					"method", r.Method,
					"route", route,
					"path", r.URL.Path,
					"user_id", userID,
					"stack", string(debug.Stack()),
				)

				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
