package duplicates

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/duplicates", func(dr chi.Router) {
		dr.Post("/mark", markHandler(svc))
		dr.Post("/unmark", unmarkHandler(svc))
		dr.Post("/cross-reference", crossReferenceHandler(svc))

		// ?uid=...&uid=... (uno o dos identificadores)
		dr.Get("/audit", historyHandler(svc))
	})
}

type linkRequest struct {
	SourceUID string `json:"source_uid"`
	TargetUID string `json:"target_uid"`
	Reason    string `json:"reason"`
}

type unmarkRequest struct {
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

type auditEntryResponse struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	SourceUID string    `json:"source_uid"`
	TargetUID *string   `json:"target_uid"`
	ActorID   string    `json:"actor_id"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// markHandler godoc
// @Summary Marcar duplicado
// @Description Marca `source_uid` como duplicado de `target_uid`. Queda registro en el log aunque la marca ya existiera.
// @Tags duplicates
// @Accept json
// @Produce json
// @Param body body linkRequest true "Origen, destino y motivo"
// @Success 200 {object} pets.PetResponse
// @Failure 404 {string} string "uid_not_found"
// @Failure 409 {string} string "already_marked"
// @Router /duplicates/mark [post]
func markHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req linkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.MarkDuplicate(r.Context(), req.SourceUID, req.TargetUID, req.Reason, actor)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pets.ToPetResponse(p))
	}
}

// unmarkHandler godoc
// @Summary Desmarcar duplicado
// @Tags duplicates
// @Accept json
// @Produce json
// @Param body body unmarkRequest true "Paciente y motivo"
// @Success 200 {object} pets.PetResponse
// @Failure 409 {string} string "not_marked"
// @Router /duplicates/unmark [post]
func unmarkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req unmarkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.UnmarkDuplicate(r.Context(), req.UID, req.Reason, actor)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pets.ToPetResponse(p))
	}
}

func crossReferenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req linkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		e, err := svc.CrossReference(r.Context(), req.SourceUID, req.TargetUID, req.Reason, actor)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAuditEntryResponse(e))
	}
}

// historyHandler godoc
// @Summary Historial de duplicados
// @Tags duplicates
// @Produce json
// @Param uid query []string true "Uno o dos identificadores"
// @Success 200 {array} auditEntryResponse
// @Router /duplicates/audit [get]
func historyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.History(r.Context(), r.URL.Query()["uid"]...)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		out := make([]auditEntryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toAuditEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "uid_not_found", http.StatusNotFound)
	case errors.Is(err, ErrSameIdentifier):
		http.Error(w, "same_identifier", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrAlreadyMarked):
		http.Error(w, "already_marked", http.StatusConflict)
	case errors.Is(err, ErrNotMarked):
		http.Error(w, "not_marked", http.StatusConflict)
	case errors.Is(err, ErrDuplicateCycle):
		http.Error(w, "duplicate_cycle", http.StatusConflict)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		identifiers.WriteError(w, r, err)
	}
}

func toAuditEntryResponse(e AuditEntry) auditEntryResponse {
	var target *string
	if e.TargetUID != "" {
		t := e.TargetUID
		target = &t
	}
	return auditEntryResponse{
		ID:        e.ID,
		Action:    e.Action,
		SourceUID: e.SourceUID,
		TargetUID: target,
		ActorID:   e.ActorID,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
