package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader se devuelve en la respuesta para correlacionar con logs.
const RequestIDHeader = "X-Request-ID"

// EchoRequestID copia el request id generado por chimw.RequestID a la respuesta.
// Debe ir después de chimw.RequestID.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			w.Header().Set(RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
