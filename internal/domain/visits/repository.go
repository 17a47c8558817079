package visits

import (
	"context"
	"time"

	"vet-clinic-records/internal/domain/pets"
)

type Repository interface {
	// Create falla con ErrSequenceTaken si (pet, fecha, secuencia) ya existe.
	Create(ctx context.Context, v Visit) error
	Update(ctx context.Context, v Visit) error

	GetByID(ctx context.Context, id string) (Visit, error)
	// LockByID toma lock exclusivo sobre la visita (registro de documentos).
	LockByID(ctx context.Context, id string) (Visit, error)

	// ListForDay devuelve las visitas del día ordenadas por secuencia.
	ListForDay(ctx context.Context, petID string, day time.Time) ([]Visit, error)
}

// PatientLocker serializa la asignación de secuencia por paciente.
// pets.Repository lo cumple.
type PatientLocker interface {
	LockByID(ctx context.Context, id string) (pets.Pet, error)
}
