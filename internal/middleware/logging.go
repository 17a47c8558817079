package middleware

import (
	"context"
	"net/http"
	"time"

	"vet-clinic-records/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger deja un logger con request_id en el ctx y registra cada request al terminar.
func RequestLogger(base logger.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(map[string]any{"request_id": chimw.GetReqID(r.Context())})

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), l)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  r.RemoteAddr,
			}
			if status >= 500 {
				l.Error("request", fields)
				return
			}
			l.Info("request", fields)
		})
	}
}

func LoggerFrom(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx)
}

// LogError registra un error inesperado del handler (los 500).
func LogError(r *http.Request, err error) {
	LoggerFrom(r.Context()).Error("unhandled error", map[string]any{
		"err":    err,
		"method": r.Method,
		"path":   r.URL.Path,
	})
}
