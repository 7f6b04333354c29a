package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs every HTTP request with method, path, member id, status
// and duration. It sits after RequireAuth on protected routes, so the member
// id is present there and zero on public ones.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if memberID := GetMemberID(r.Context()); memberID != 0 {
				attrs = append(attrs, "member_id", memberID)
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Error("request failed", attrs...)
			} else {
				logger.Info("request handled", attrs...)
			}
		})
	}
}
