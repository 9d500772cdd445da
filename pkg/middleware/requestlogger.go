package middleware

import (
	"log/slog"
	"net/http"

	"github.com/thanhvinh2808/SoulDiary-FE/pkg/logger"
)

// RequestLogger stores a logger enriched with the correlation ID and trace
// context in the request context. Mount it after RequestLogging and Tracing;
// handlers fetch it with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
