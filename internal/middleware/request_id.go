package middleware

import (
	"net/http"
	"time"

	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger debe ir después de chimw.RequestID: cuelga un logger con
// request_id en el contexto, registra una línea por request y alimenta métricas.
func RequestLogger(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			l := base.With(map[string]any{"request_id": chimw.GetReqID(r.Context())})
			ctx := logger.WithContext(r.Context(), l)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.ObserveHTTP(r.Method, route, status, elapsed)

			l.Info("http request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": elapsed.Milliseconds(),
				"bytes":       ww.BytesWritten(),
			})
		})
	}
}
