package pets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/platform/txn"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("pet not found")
	ErrUIDTaken     = errors.New("uid already assigned")
)

// nombre por defecto de los pacientes creados desde el mostrador sin datos
const provisionalName = "Provisional"

type Service struct {
	repo Repository
	ids  *identifiers.Service
	tx   txn.Manager
	now  func() time.Time
}

func NewService(repo Repository, ids *identifiers.Service, tx txn.Manager) *Service {
	return &Service{
		repo: repo,
		ids:  ids,
		tx:   tx,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name        string
	Species     string
	Breed       string
	Sex         string
	BirthDate   *time.Time
	OwnerName   string
	OwnerMobile string
	Notes       string
	Via         CreatedVia

	// Provisional: alta rápida, se completa después.
	Provisional bool
}

// Create asigna identificador e inserta el paciente en la misma transacción:
// si el insert falla, el correlativo del año vuelve atrás.
func (s *Service) Create(ctx context.Context, in CreateInput) (Pet, error) {
	p, err := s.build(in)
	if err != nil {
		return Pet{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		uid, err := s.ids.Allocate(ctx)
		if err != nil {
			return err
		}
		p.UID = uid
		p.UIDBase = identifiers.ExtractBase(uid)
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return Pet{}, err
	}
	return p, nil
}

func (s *Service) build(in CreateInput) (Pet, error) {
	via := in.Via
	if in.Provisional {
		via = CreatedViaProvisional
	}
	if via == "" {
		via = CreatedViaWeb
	}
	if !via.Valid() {
		return Pet{}, fmt.Errorf("%w: created_via", ErrInvalidInput)
	}

	name := strings.TrimSpace(in.Name)
	species := Species(strings.ToLower(strings.TrimSpace(in.Species)))
	sex := Sex(strings.ToLower(strings.TrimSpace(in.Sex)))

	if in.Provisional {
		if name == "" {
			name = provisionalName
		}
	} else {
		if name == "" {
			return Pet{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if species == "" {
			return Pet{}, fmt.Errorf("%w: species is required", ErrInvalidInput)
		}
	}
	if species != "" && !species.Valid() {
		return Pet{}, fmt.Errorf("%w: unknown species %q", ErrInvalidInput, species)
	}
	if sex == "" {
		sex = SexUnknown
	}
	if !sex.Valid() {
		return Pet{}, fmt.Errorf("%w: unknown sex %q", ErrInvalidInput, sex)
	}

	now := s.now()
	p := Pet{
		ID:          uuid.NewString(),
		Name:        name,
		Species:     species,
		Breed:       strings.TrimSpace(in.Breed),
		Sex:         sex,
		BirthDate:   in.BirthDate,
		OwnerName:   strings.TrimSpace(in.OwnerName),
		OwnerMobile: strings.TrimSpace(in.OwnerMobile),
		Notes:       strings.TrimSpace(in.Notes),
		Status:      StatusActive,
		CreatedVia:  via,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.IsComplete = !in.Provisional && profileComplete(p)
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve valida el identificador tipeado/escaneado y busca el paciente por base.
func (s *Service) Resolve(ctx context.Context, candidate string) (Pet, error) {
	base, err := s.ids.Validate(candidate)
	if err != nil {
		return Pet{}, err
	}
	return s.repo.GetByUIDBase(ctx, base)
}

// Search acepta un celular de 10 dígitos o un identificador (con o sin dígito verificador).
func (s *Service) Search(ctx context.Context, q string) ([]Pet, error) {
	q = identifiers.Normalize(q)
	if len(q) == 10 && isDigits(q) {
		return s.repo.ListByOwnerMobile(ctx, q)
	}

	p, err := s.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return []Pet{p}, nil
}

type CompleteInput struct {
	// nil = no tocar
	Name        *string
	Species     *string
	Breed       *string
	Sex         *string
	OwnerName   *string
	OwnerMobile *string
	Notes       *string
}

// Complete aplica los datos faltantes y marca el perfil como completo.
// Si tras aplicar los cambios faltan datos mínimos devuelve ErrInvalidInput.
func (s *Service) Complete(ctx context.Context, candidate string, in CompleteInput) (Pet, error) {
	base, err := s.ids.Validate(candidate)
	if err != nil {
		return Pet{}, err
	}

	var out Pet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.LockByUIDBase(ctx, base)
		if err != nil {
			return err
		}

		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Species != nil {
			sp := Species(strings.ToLower(strings.TrimSpace(*in.Species)))
			if !sp.Valid() {
				return fmt.Errorf("%w: unknown species %q", ErrInvalidInput, sp)
			}
			p.Species = sp
		}
		if in.Breed != nil {
			p.Breed = strings.TrimSpace(*in.Breed)
		}
		if in.Sex != nil {
			sx := Sex(strings.ToLower(strings.TrimSpace(*in.Sex)))
			if !sx.Valid() {
				return fmt.Errorf("%w: unknown sex %q", ErrInvalidInput, sx)
			}
			p.Sex = sx
		}
		if in.OwnerName != nil {
			p.OwnerName = strings.TrimSpace(*in.OwnerName)
		}
		if in.OwnerMobile != nil {
			p.OwnerMobile = strings.TrimSpace(*in.OwnerMobile)
		}
		if in.Notes != nil {
			p.Notes = strings.TrimSpace(*in.Notes)
		}

		if !profileComplete(p) || p.Name == provisionalName {
			return fmt.Errorf("%w: name, species, owner name and owner mobile are required", ErrInvalidInput)
		}

		p.IsComplete = true
		p.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Pet{}, err
	}
	return out, nil
}

func (s *Service) ListIncomplete(ctx context.Context) ([]Pet, error) {
	return s.repo.ListIncomplete(ctx)
}

func (s *Service) ListDuplicates(ctx context.Context) ([]Pet, error) {
	return s.repo.ListDuplicates(ctx)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
