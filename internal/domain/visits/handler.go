package visits

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service) {
	// Alta desde mostrador/app: paciente + visita 1 en un solo paso
	r.Post("/intake", intakeHandler(svc, petsSvc))

	r.Route("/patients/{uid}/visits", func(vr chi.Router) {
		vr.Post("/", ensureVisitHandler(svc, petsSvc))
		vr.Get("/", listVisitsHandler(svc, petsSvc))
	})

	r.Route("/visits", func(vr chi.Router) {
		vr.Get("/{visitID}", getVisitHandler(svc))
		vr.Post("/{visitID}/close", closeVisitHandler(svc))
		vr.Post("/{visitID}/reopen", reopenVisitHandler(svc))
	})
}

type ensureVisitRequest struct {
	Date     string `json:"date"` // YYYY-MM-DD, opcional (default hoy)
	ForceNew bool   `json:"force_new"`
	Source   Source `json:"source"` // web | mobile
}

// VisitResponse representa una visita devuelta por la API.
type VisitResponse struct {
	ID        string     `json:"id"`
	PetID     string     `json:"pet_id"`
	VisitDate string     `json:"visit_date"`
	Sequence  int        `json:"sequence"`
	Status    Status     `json:"status"`
	Source    Source     `json:"source"`
	OpenedBy  string     `json:"opened_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

type ensureVisitResponse struct {
	Visit   VisitResponse `json:"visit"`
	Created bool          `json:"created"`
}

type intakeResponse struct {
	Patient pets.PetResponse `json:"patient"`
	Visit   VisitResponse    `json:"visit"`
}

// intakeHandler godoc
// @Summary Intake con visita
// @Description Registra al paciente (normal o provisional) y abre su primera visita del día en la misma transacción.
// @Tags visits
// @Accept json
// @Produce json
// @Param X-Client-Source header string false "web | mobile"
// @Success 201 {object} intakeResponse
// @Router /intake [post]
func intakeHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in, err := pets.DecodeCreateInput(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		src := Source(strings.TrimSpace(r.Header.Get("X-Client-Source")))
		p, v, err := svc.IntakeWithVisit(r.Context(), petsSvc, in, src, actor)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, intakeResponse{Patient: pets.ToPetResponse(p), Visit: ToVisitResponse(v)})
	}
}

// ensureVisitHandler godoc
// @Summary Abrir (o recuperar) visita del día
// @Description Sin `force_new` devuelve la visita existente del día o crea la secuencia 1. Con `force_new` crea la siguiente secuencia.
// @Tags visits
// @Accept json
// @Produce json
// @Param uid path string true "Identificador del paciente"
// @Param body body ensureVisitRequest false "Opciones"
// @Success 200 {object} ensureVisitResponse "visita existente"
// @Success 201 {object} ensureVisitResponse "visita creada"
// @Failure 404 {string} string "uid_not_found"
// @Failure 503 {string} string "lock_timeout"
// @Router /patients/{uid}/visits [post]
func ensureVisitHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req ensureVisitRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		date, err := ParseDate(req.Date)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := petsSvc.Resolve(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			pets.WriteError(w, r, err)
			return
		}

		v, created, err := svc.Ensure(r.Context(), EnsureInput{
			PetID:    p.ID,
			Date:     date,
			ForceNew: req.ForceNew,
			Source:   req.Source,
			OpenedBy: actor,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, ensureVisitResponse{Visit: ToVisitResponse(v), Created: created})
	}
}

// listVisitsHandler godoc
// @Summary Visitas del día
// @Tags visits
// @Produce json
// @Param uid path string true "Identificador del paciente"
// @Param date query string false "YYYY-MM-DD (default hoy)"
// @Success 200 {array} VisitResponse
// @Router /patients/{uid}/visits [get]
func listVisitsHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		date, err := ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := petsSvc.Resolve(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			pets.WriteError(w, r, err)
			return
		}

		items, err := svc.ListForDay(r.Context(), p.ID, date)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		out := make([]VisitResponse, 0, len(items))
		for _, v := range items {
			out = append(out, ToVisitResponse(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getVisitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		v, err := svc.GetByID(r.Context(), chi.URLParam(r, "visitID"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ToVisitResponse(v))
	}
}

// closeVisitHandler godoc
// @Summary Cerrar visita
// @Description Idempotente: cerrar una visita ya cerrada devuelve 200.
// @Tags visits
// @Produce json
// @Param visitID path string true "ID de la visita"
// @Success 200 {object} VisitResponse
// @Failure 404 {string} string "visit_not_found"
// @Router /visits/{visitID}/close [post]
func closeVisitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		v, err := svc.Close(r.Context(), chi.URLParam(r, "visitID"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ToVisitResponse(v))
	}
}

// reopenVisitHandler godoc
// @Summary Reabrir visita
// @Description Crea una nueva secuencia el mismo día; la visita cerrada no se modifica.
// @Tags visits
// @Produce json
// @Param visitID path string true "ID de la visita"
// @Success 201 {object} VisitResponse
// @Router /visits/{visitID}/reopen [post]
func reopenVisitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		v, err := svc.Reopen(r.Context(), chi.URLParam(r, "visitID"), actor)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ToVisitResponse(v))
	}
}

// ParseDate acepta YYYY-MM-DD; vacío = zero (hoy).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return t, nil
}

// WriteError traduce errores de visitas a status HTTP.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "visit_not_found", http.StatusNotFound)
	case errors.Is(err, ErrPatientNotFound):
		http.Error(w, "uid_not_found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSequenceTaken):
		http.Error(w, "visit_sequence_taken", http.StatusConflict)
	case errors.Is(err, ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "lock_timeout", http.StatusServiceUnavailable)
	default:
		pets.WriteError(w, r, err)
	}
}

func ToVisitResponse(v Visit) VisitResponse {
	return VisitResponse{
		ID:        v.ID,
		PetID:     v.PetID,
		VisitDate: v.VisitDate.Format("2006-01-02"),
		Sequence:  v.Sequence,
		Status:    v.Status,
		Source:    v.Source,
		OpenedBy:  v.OpenedBy,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
		ClosedAt:  v.ClosedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
