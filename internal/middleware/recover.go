package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/platform/logger"
)

// Recover convierte panics en 500 JSON y loguea el stack del lado servidor.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.FromContext(r.Context()).Error("panic recovered", map[string]any{
				"panic":  fmt.Sprint(rec),
				"stack":  string(debug.Stack()),
				"method": r.Method,
				"path":   r.URL.Path,
			})
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.Envelope{
				Success: false,
				Message: "internal server error",
			})
		}()
		next.ServeHTTP(w, r)
	})
}
