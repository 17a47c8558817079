package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/patients", func(pr chi.Router) {
		pr.Post("/", createPetHandler(svc))
		pr.Get("/search", searchPetsHandler(svc))

		// Listados de administración
		pr.Get("/incomplete", listIncompleteHandler(svc))
		pr.Get("/duplicates", listDuplicatesHandler(svc))

		pr.Get("/{uid}", getPetHandler(svc))
		pr.Post("/{uid}/complete", completePetHandler(svc))
	})
}

type createPetRequest struct {
	Name        string `json:"name"`
	Species     string `json:"species"`
	Breed       string `json:"breed"`
	Sex         string `json:"sex"`
	BirthDate   string `json:"birth_date"` // YYYY-MM-DD opcional
	OwnerName   string `json:"owner_name"`
	OwnerMobile string `json:"owner_mobile"`
	Notes       string `json:"notes"`
	CreatedVia  string `json:"created_via"` // web | mobile
	Provisional bool   `json:"provisional"`
}

type completePetRequest struct {
	Name        *string `json:"name"`
	Species     *string `json:"species"`
	Breed       *string `json:"breed"`
	Sex         *string `json:"sex"`
	OwnerName   *string `json:"owner_name"`
	OwnerMobile *string `json:"owner_mobile"`
	Notes       *string `json:"notes"`
}

// PetResponse es la representación pública del paciente.
// La reutilizan otros módulos (visitas, intake).
type PetResponse struct {
	ID             string     `json:"id"`
	UID            string     `json:"uid"`
	UIDBase        string     `json:"uid_base"`
	Name           string     `json:"name"`
	Species        Species    `json:"species"`
	Breed          string     `json:"breed"`
	Sex            Sex        `json:"sex"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	OwnerName      string     `json:"owner_name"`
	OwnerMobile    string     `json:"owner_mobile"`
	Notes          string     `json:"notes"`
	Status         Status     `json:"status"`
	CreatedVia     CreatedVia `json:"created_via"`
	IsComplete     bool       `json:"is_complete"`
	IsDuplicate    bool       `json:"is_duplicate"`
	DuplicateOfUID string     `json:"duplicate_of_uid,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// createPetHandler godoc
// @Summary Registrar paciente
// @Description Da de alta un paciente y le asigna identificador en la misma transacción. Con `provisional=true` solo se exige lo mínimo y el perfil queda incompleto.
// @Tags patients
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param body body createPetRequest true "Datos del paciente"
// @Success 201 {object} PetResponse
// @Failure 400 {string} string "invalid input"
// @Failure 503 {string} string "allocation_timeout"
// @Router /patients [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createPetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in, err := req.toInput()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := svc.Create(r.Context(), in)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, ToPetResponse(p))
	}
}

func (req createPetRequest) toInput() (CreateInput, error) {
	var bd *time.Time
	if strings.TrimSpace(req.BirthDate) != "" {
		t, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			return CreateInput{}, errors.New("birth_date must be YYYY-MM-DD")
		}
		bd = &t
	}

	return CreateInput{
		Name:        req.Name,
		Species:     req.Species,
		Breed:       req.Breed,
		Sex:         req.Sex,
		BirthDate:   bd,
		OwnerName:   req.OwnerName,
		OwnerMobile: req.OwnerMobile,
		Notes:       req.Notes,
		Via:         CreatedVia(strings.TrimSpace(req.CreatedVia)),
		Provisional: req.Provisional,
	}, nil
}

// DecodeCreateInput lee el cuerpo de alta de paciente. Lo usa el intake con visita.
func DecodeCreateInput(r *http.Request) (CreateInput, error) {
	var req createPetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return CreateInput{}, errors.New("invalid json")
	}
	return req.toInput()
}

// getPetHandler godoc
// @Summary Obtener paciente por identificador
// @Description Acepta el identificador canónico (7 dígitos) o la base (6 dígitos) si la compatibilidad legacy está activa.
// @Tags patients
// @Produce json
// @Param uid path string true "Identificador del paciente"
// @Success 200 {object} PetResponse
// @Failure 404 {string} string "uid_not_found"
// @Failure 422 {string} string "bad_checksum"
// @Router /patients/{uid} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.Resolve(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, ToPetResponse(p))
	}
}

// searchPetsHandler godoc
// @Summary Buscar pacientes
// @Description `q` puede ser un celular de 10 dígitos o un identificador.
// @Tags patients
// @Produce json
// @Param q query string true "Celular o identificador"
// @Success 200 {array} PetResponse
// @Router /patients/search [get]
func searchPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponses(items))
	}
}

// completePetHandler godoc
// @Summary Completar perfil
// @Description Aplica los datos faltantes de un paciente provisional y lo marca como completo.
// @Tags patients
// @Accept json
// @Produce json
// @Param uid path string true "Identificador del paciente"
// @Param body body completePetRequest true "Campos a completar"
// @Success 200 {object} PetResponse
// @Router /patients/{uid}/complete [post]
func completePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req completePetRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		p, err := svc.Complete(r.Context(), chi.URLParam(r, "uid"), CompleteInput(req))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ToPetResponse(p))
	}
}

func listIncompleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListIncomplete(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponses(items))
	}
}

func listDuplicatesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListDuplicates(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponses(items))
	}
}

// WriteError traduce errores de pacientes (e identificadores) a status HTTP.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "uid_not_found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUIDTaken):
		http.Error(w, "uid_taken", http.StatusConflict)
	default:
		identifiers.WriteError(w, r, err)
	}
}

func ToPetResponse(p Pet) PetResponse {
	return PetResponse{
		ID:             p.ID,
		UID:            p.UID,
		UIDBase:        p.UIDBase,
		Name:           p.Name,
		Species:        p.Species,
		Breed:          p.Breed,
		Sex:            p.Sex,
		BirthDate:      p.BirthDate,
		OwnerName:      p.OwnerName,
		OwnerMobile:    p.OwnerMobile,
		Notes:          p.Notes,
		Status:         p.Status,
		CreatedVia:     p.CreatedVia,
		IsComplete:     p.IsComplete,
		IsDuplicate:    p.IsDuplicate,
		DuplicateOfUID: p.DuplicateOfUID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toPetResponses(items []Pet) []PetResponse {
	out := make([]PetResponse, 0, len(items))
	for _, p := range items {
		out = append(out, ToPetResponse(p))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
