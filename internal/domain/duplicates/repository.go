package duplicates

import (
	"context"

	"vet-clinic-records/internal/domain/pets"
)

type AuditRepository interface {
	Append(ctx context.Context, e AuditEntry) error
	// ListByUIDs devuelve las entradas donde alguna base aparece como origen o destino,
	// de la más nueva a la más vieja.
	ListByUIDs(ctx context.Context, uids []string) ([]AuditEntry, error)
}

// PatientStore lo cumple pets.Repository.
type PatientStore interface {
	GetByUIDBase(ctx context.Context, base string) (pets.Pet, error)
	LockByUIDBase(ctx context.Context, base string) (pets.Pet, error)
	Update(ctx context.Context, p pets.Pet) error
}
