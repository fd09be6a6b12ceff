// Package httpx concentra el sobre de respuesta JSON, el mapeo de errores
// y el bind+validación de payloads.
package httpx

import (
	"encoding/json"
	"net/http"

	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/logger"
)

// Envelope es el sobre común de todas las respuestas.
type Envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Count   *int                `json:"count,omitempty"`
	Total   *int                `json:"total,omitempty"`
	Page    *int                `json:"page,omitempty"`
	Pages   *int                `json:"pages,omitempty"`
}

// PageInfo acompaña a los listados paginados.
type PageInfo struct {
	Count int
	Total int
	Page  int
	Pages int
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Data(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

func Message(w http.ResponseWriter, status int, msg string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: msg, Data: data})
}

func List(w http.ResponseWriter, items any, count int) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: items, Count: &count})
}

func Paged(w http.ResponseWriter, items any, p PageInfo) {
	WriteJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Count:   &p.Count,
		Total:   &p.Total,
		Page:    &p.Page,
		Pages:   &p.Pages,
	})
}

// Error traduce err a status + sobre. Solo las fallas de servidor se
// loguean; al cliente le llega un mensaje genérico.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if apperr.IsServerFault(err) {
		logger.FromContext(r.Context()).Error("request failed", map[string]any{
			"error":  err,
			"kind":   kind.String(),
			"method": r.Method,
			"path":   r.URL.Path,
		})
		msg := "internal server error"
		if kind == apperr.KindUnavailable {
			msg = "service temporarily unavailable"
		}
		WriteJSON(w, status, Envelope{Success: false, Message: msg})
		return
	}

	env := Envelope{Success: false, Message: err.Error()}
	var ae *apperr.Error
	if asAppErr(err, &ae) {
		env.Message = ae.Message()
		env.Errors = ae.Fields()
	}
	WriteJSON(w, status, env)
}
