package documents

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/domain/visits"
	"vet-clinic-records/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// margen para los campos del multipart además del archivo
const multipartOverhead = 1 << 20

func RegisterRoutes(r chi.Router, svc *Service, visitsSvc *visits.Service, petsSvc *pets.Service) {
	r.Route("/visits/{visitID}/documents", func(dr chi.Router) {
		dr.Post("/", registerDocumentHandler(svc))
		dr.Get("/", listVisitDocumentsHandler(svc))
	})

	// App móvil: sube al paciente y la visita se resuelve sola
	r.Post("/patients/{uid}/documents", uploadForPatientHandler(svc, petsSvc))
	r.Get("/patients/{uid}/today", todayHandler(svc, visitsSvc, petsSvc))

	r.Route("/documents/{documentID}", func(dr chi.Router) {
		dr.Get("/", getDocumentHandler(svc))
		dr.Get("/content", documentContentHandler(svc))
		dr.Delete("/", deleteDocumentHandler(svc))
	})
}

// DocumentResponse representa un documento registrado.
type DocumentResponse struct {
	ID           string     `json:"id"`
	VisitID      string     `json:"visit_id"`
	PetID        string     `json:"pet_id"`
	PatientUID   string     `json:"patient_uid"`
	Type         Type       `json:"type"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"original_name"`
	StoragePath  string     `json:"storage_path"`
	ContentType  string     `json:"content_type"`
	SizeBytes    int64      `json:"size_bytes"`
	Note         string     `json:"note,omitempty"`
	Checksum     string     `json:"checksum"`
	CapturedAt   time.Time  `json:"captured_at"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

type uploadResponse struct {
	Visit    visits.VisitResponse `json:"visit"`
	Document DocumentResponse     `json:"document"`
}

type visitWithDocuments struct {
	Visit     visits.VisitResponse `json:"visit"`
	Documents []DocumentResponse   `json:"documents"`
}

// registerDocumentHandler godoc
// @Summary Subir documento a una visita
// @Description multipart/form-data con `file`, `type` y `note` opcional. Rechaza con 409 si la visita ya tiene el mismo archivo (por contenido) o el mismo nombre generado.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param visitID path string true "ID de la visita"
// @Param file formData file true "Archivo (jpg, jpeg, png, pdf, webp)"
// @Param type formData string true "prescription | lab | xray | usg | photo | certificate | report"
// @Param note formData string false "Nota"
// @Success 201 {object} DocumentResponse
// @Failure 409 {string} string "duplicate_file"
// @Failure 413 {string} string "file_too_large"
// @Router /visits/{visitID}/documents [post]
func registerDocumentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in, ok := readUpload(w, r, svc.MaxBytes())
		if !ok {
			return
		}
		in.VisitID = chi.URLParam(r, "visitID")

		d, err := svc.Register(r.Context(), in)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ToDocumentResponse(d))
	}
}

// uploadForPatientHandler godoc
// @Summary Subir documento al paciente
// @Description Usa la visita abierta del día (o la crea). Con `force_new_visit=true` abre una visita nueva.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param uid path string true "Identificador del paciente"
// @Param file formData file true "Archivo"
// @Param type formData string true "Tipo de documento"
// @Param note formData string false "Nota"
// @Param force_new_visit formData bool false "Abrir visita nueva"
// @Success 201 {object} uploadResponse
// @Router /patients/{uid}/documents [post]
func uploadForPatientHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in, ok := readUpload(w, r, svc.MaxBytes())
		if !ok {
			return
		}
		forceNew, _ := strconv.ParseBool(r.FormValue("force_new_visit"))

		p, err := petsSvc.Resolve(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			pets.WriteError(w, r, err)
			return
		}

		src := visits.Source(strings.TrimSpace(r.FormValue("source")))
		if src == "" {
			src = visits.SourceMobile
		}

		v, d, err := svc.UploadForPatient(r.Context(), p.ID, forceNew, src, actor, in)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, uploadResponse{Visit: visits.ToVisitResponse(v), Document: ToDocumentResponse(d)})
	}
}

// todayHandler godoc
// @Summary Visitas del día con documentos
// @Tags documents
// @Produce json
// @Param uid path string true "Identificador del paciente"
// @Param date query string false "YYYY-MM-DD (default hoy)"
// @Success 200 {array} visitWithDocuments
// @Router /patients/{uid}/today [get]
func todayHandler(svc *Service, visitsSvc *visits.Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		date, err := visits.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := petsSvc.Resolve(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			pets.WriteError(w, r, err)
			return
		}

		items, err := visitsSvc.ListForDay(r.Context(), p.ID, date)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		out := make([]visitWithDocuments, 0, len(items))
		for _, v := range items {
			docs, err := svc.ListByVisit(r.Context(), v.ID)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			out = append(out, visitWithDocuments{Visit: visits.ToVisitResponse(v), Documents: toDocumentResponses(docs)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listVisitDocumentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		docs, err := svc.ListByVisit(r.Context(), chi.URLParam(r, "visitID"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentResponses(docs))
	}
}

func getDocumentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.GetByID(r.Context(), chi.URLParam(r, "documentID"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ToDocumentResponse(d))
	}
}

func documentContentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, b, err := svc.Content(r.Context(), chi.URLParam(r, "documentID"))
		if err != nil {
			WriteError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", d.ContentType)
		w.Header().Set("Content-Disposition", `inline; filename="`+d.Filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(b)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// deleteDocumentHandler godoc
// @Summary Borrar documento (soft delete)
// @Tags documents
// @Produce json
// @Param documentID path string true "ID del documento"
// @Success 200 {object} DocumentResponse
// @Router /documents/{documentID} [delete]
func deleteDocumentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserID(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.SoftDelete(r.Context(), chi.URLParam(r, "documentID"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ToDocumentResponse(d))
	}
}

// readUpload parsea el multipart. Si devuelve false ya respondió el error.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (RegisterInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "file_too_large", http.StatusRequestEntityTooLarge)
			return RegisterInput{}, false
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return RegisterInput{}, false
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return RegisterInput{}, false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return RegisterInput{}, false
	}

	return RegisterInput{
		Type:         Type(r.FormValue("type")),
		Content:      content,
		OriginalName: hdr.Filename,
		ContentType:  hdr.Header.Get("Content-Type"),
		Note:         r.FormValue("note"),
	}, true
}

// WriteError traduce errores de documentos a status HTTP.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrDuplicateArtifact):
		http.Error(w, "duplicate_file", http.StatusConflict)
	case errors.Is(err, ErrTooLarge):
		http.Error(w, "file_too_large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrUnsupportedType):
		http.Error(w, "unsupported_file_type", http.StatusUnsupportedMediaType)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrVisitNotFound):
		http.Error(w, "visit_not_found", http.StatusNotFound)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "document_not_found", http.StatusNotFound)
	case errors.Is(err, ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "lock_timeout", http.StatusServiceUnavailable)
	default:
		visits.WriteError(w, r, err)
	}
}

func ToDocumentResponse(d Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID,
		VisitID:      d.VisitID,
		PetID:        d.PetID,
		PatientUID:   d.PatientUID,
		Type:         d.Type,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		StoragePath:  d.StoragePath,
		ContentType:  d.ContentType,
		SizeBytes:    d.SizeBytes,
		Note:         d.Note,
		Checksum:     d.Checksum,
		CapturedAt:   d.CapturedAt,
		CreatedAt:    d.CreatedAt,
		DeletedAt:    d.DeletedAt,
	}
}

func toDocumentResponses(items []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(items))
	for _, d := range items {
		out = append(out, ToDocumentResponse(d))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
