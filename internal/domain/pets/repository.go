package pets

import "context"

type Repository interface {
	// Create falla con ErrUIDTaken si la base ya existe.
	Create(ctx context.Context, p Pet) error
	Update(ctx context.Context, p Pet) error

	GetByID(ctx context.Context, id string) (Pet, error)
	GetByUIDBase(ctx context.Context, base string) (Pet, error)

	// LockByID / LockByUIDBase toman lock exclusivo sobre la fila
	// hasta el fin de la transacción del ctx.
	LockByID(ctx context.Context, id string) (Pet, error)
	LockByUIDBase(ctx context.Context, base string) (Pet, error)

	ListIncomplete(ctx context.Context) ([]Pet, error)
	ListDuplicates(ctx context.Context) ([]Pet, error)
	ListByOwnerMobile(ctx context.Context, mobile string) ([]Pet, error)
}
