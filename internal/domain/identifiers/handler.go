package identifiers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"vet-clinic-records/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/identifiers", func(ir chi.Router) {
		ir.Post("/", allocateHandler(svc))

		// Validación offline: no toca la base de datos
		ir.Get("/{candidate}", validateHandler(svc))
	})
}

type allocateResponse struct {
	UID  string `json:"uid"`
	Base string `json:"base"`
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Base  string `json:"base,omitempty"`
	UID   string `json:"uid,omitempty"`
	// Legacy indica que la entrada no traía dígito verificador.
	Legacy bool   `json:"legacy"`
	Error  string `json:"error,omitempty"`
}

// allocateHandler godoc
// @Summary Emitir identificador
// @Description Reserva el siguiente identificador del año (YYNNNN + dígito verificador). Requiere staff autenticado.
// @Tags identifiers
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Success 201 {object} allocateResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "allocation_timeout"
// @Router /identifiers [post]
func allocateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		uid, err := svc.Allocate(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, allocateResponse{UID: uid, Base: ExtractBase(uid)})
	}
}

// validateHandler godoc
// @Summary Validar identificador
// @Description Verifica largo y dígito verificador. Acepta la base sola si la compatibilidad legacy está activa.
// @Tags identifiers
// @Produce json
// @Param candidate path string true "Identificador tipeado o escaneado"
// @Success 200 {object} validateResponse
// @Failure 422 {object} validateResponse
// @Router /identifiers/{candidate} [get]
func validateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := svc.Parse(chi.URLParam(r, "candidate"))
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, validateResponse{Valid: false, Error: ErrorCode(err)})
			return
		}

		writeJSON(w, http.StatusOK, validateResponse{
			Valid:  true,
			Base:   id.Base,
			UID:    id.Full,
			Legacy: id.Full == "",
		})
	}
}

// ErrorCode traduce errores de identificador a códigos cortos para clientes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBadChecksum):
		return "bad_checksum"
	case errors.Is(err, ErrNotNumeric):
		return "not_numeric"
	case errors.Is(err, ErrWrongLength):
		return "wrong_length"
	case errors.Is(err, ErrAllocationTimeout):
		return "allocation_timeout"
	case errors.Is(err, ErrSequenceExhausted):
		return "sequence_exhausted"
	default:
		return "internal_error"
	}
}

// WriteError escribe el status que corresponde a un error de este módulo.
// Lo reutilizan otros módulos que resuelven pacientes por identificador.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		http.Error(w, ErrorCode(err), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrAllocationTimeout):
		w.Header().Set("Retry-After", "1")
		http.Error(w, ErrorCode(err), http.StatusServiceUnavailable)
	case errors.Is(err, ErrSequenceExhausted):
		http.Error(w, ErrorCode(err), http.StatusConflict)
	default:
		middleware.LogError(r, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
