package documents

import (
	"context"
	"time"

	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/domain/visits"
)

type Repository interface {
	// Create falla con ErrDuplicateArtifact si choca filename o checksum en la visita.
	Create(ctx context.Context, d Document) error
	GetByID(ctx context.Context, id string) (Document, error)

	// CountByType cuenta también los borrados: un nombre no se reutiliza.
	CountByType(ctx context.Context, visitID string, t Type) (int, error)

	// FindDuplicate busca en la visita un documento con el mismo filename
	// o el mismo checksum (este último solo entre no borrados).
	FindDuplicate(ctx context.Context, visitID, filename, checksum string) (Document, bool, error)

	ListByVisit(ctx context.Context, visitID string) ([]Document, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// BlobStore guarda el contenido de los archivos. No es transaccional:
// el registrador borra lo que escribió si la transacción no llega a commit.
// BlobStore: Put nunca pisa una clave existente.
type BlobStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// VisitLocker lo cumple visits.Repository.
type VisitLocker interface {
	LockByID(ctx context.Context, id string) (visits.Visit, error)
}

// PatientReader lo cumple pets.Repository.
type PatientReader interface {
	GetByID(ctx context.Context, id string) (pets.Pet, error)
}
