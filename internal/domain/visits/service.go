package visits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/platform/txn"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("visit not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrSequenceTaken   = errors.New("visit sequence already taken")
	// ErrLockTimeout: otro request tiene tomado al paciente. Recuperable.
	ErrLockTimeout = errors.New("visit lock timeout")
)

type Service struct {
	repo     Repository
	patients PatientLocker
	tx       txn.Manager
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Service)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, patients PatientLocker, tx txn.Manager, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		repo:     repo,
		patients: patients,
		tx:       tx,
		now:      time.Now,
		loc:      loc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today devuelve la fecha civil actual de la clínica.
func (s *Service) Today() time.Time {
	return Day(s.now(), s.loc)
}

type EnsureInput struct {
	PetID    string
	Date     time.Time // zero = hoy
	ForceNew bool
	Source   Source
	OpenedBy string
}

// EnsureOpenVisit devuelve la visita del día o la crea.
// created indica si se insertó una visita nueva.
func (s *Service) EnsureOpenVisit(ctx context.Context, petID string, date time.Time, forceNew bool) (Visit, bool, error) {
	return s.Ensure(ctx, EnsureInput{PetID: petID, Date: date, ForceNew: forceNew})
}

// Ensure serializa por paciente con lock de fila:
// sin ForceNew una visita existente se devuelve sin cambios; con ForceNew se crea max+1.
func (s *Service) Ensure(ctx context.Context, in EnsureInput) (Visit, bool, error) {
	petID := strings.TrimSpace(in.PetID)
	if petID == "" {
		return Visit{}, false, fmt.Errorf("%w: pet id is required", ErrInvalidInput)
	}
	src := in.Source
	if src == "" {
		src = SourceWeb
	}
	if !src.Valid() {
		return Visit{}, false, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, src)
	}

	day := s.dayOrToday(in.Date)

	var (
		out     Visit
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockPatient(ctx, petID); err != nil {
			return err
		}

		existing, err := s.repo.ListForDay(ctx, petID, day)
		if err != nil {
			return err
		}
		if !in.ForceNew && len(existing) > 0 {
			out = pick(existing)
			return nil
		}

		v, err := s.create(ctx, petID, day, maxSequence(existing)+1, src, in.OpenedBy)
		if err != nil {
			return err
		}
		out, created = v, true
		return nil
	})
	if err != nil {
		return Visit{}, false, lockError(err)
	}
	return out, created, nil
}

// Close pasa la visita a closed. Idempotente.
func (s *Service) Close(ctx context.Context, id string) (Visit, error) {
	var out Visit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if v.Status == StatusClosed {
			out = v
			return nil
		}

		now := s.now()
		v.Status = StatusClosed
		v.ClosedAt = &now
		v.UpdatedAt = now
		if err := s.repo.Update(ctx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return Visit{}, lockError(err)
	}
	return out, nil
}

// Reopen no modifica la visita cerrada: abre una nueva secuencia el mismo día.
func (s *Service) Reopen(ctx context.Context, id string, openedBy string) (Visit, error) {
	var out Visit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		prev, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.lockPatient(ctx, prev.PetID); err != nil {
			return err
		}

		existing, err := s.repo.ListForDay(ctx, prev.PetID, prev.VisitDate)
		if err != nil {
			return err
		}
		v, err := s.create(ctx, prev.PetID, prev.VisitDate, maxSequence(existing)+1, prev.Source, openedBy)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return Visit{}, lockError(err)
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForDay devuelve las visitas del paciente en date (zero = hoy).
func (s *Service) ListForDay(ctx context.Context, petID string, date time.Time) ([]Visit, error) {
	return s.repo.ListForDay(ctx, petID, s.dayOrToday(date))
}

// IntakeWithVisit da de alta al paciente y le abre la visita 1 del día, todo o nada.
func (s *Service) IntakeWithVisit(ctx context.Context, petsSvc *pets.Service, in pets.CreateInput, src Source, openedBy string) (pets.Pet, Visit, error) {
	var (
		p pets.Pet
		v Visit
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := petsSvc.Create(ctx, in)
		if err != nil {
			return err
		}
		opened, _, err := s.Ensure(ctx, EnsureInput{PetID: created.ID, Source: src, OpenedBy: openedBy})
		if err != nil {
			return err
		}
		p, v = created, opened
		return nil
	})
	if err != nil {
		return pets.Pet{}, Visit{}, err
	}
	return p, v, nil
}

// dayOrToday: date es una fecha civil, se toma en su propia zona.
func (s *Service) dayOrToday(date time.Time) time.Time {
	if date.IsZero() {
		return s.Today()
	}
	return Day(date, date.Location())
}

func (s *Service) lockPatient(ctx context.Context, petID string) error {
	if _, err := s.patients.LockByID(ctx, petID); err != nil {
		if errors.Is(err, pets.ErrNotFound) {
			return ErrPatientNotFound
		}
		return err
	}
	return nil
}

func (s *Service) create(ctx context.Context, petID string, day time.Time, seq int, src Source, openedBy string) (Visit, error) {
	now := s.now()
	v := Visit{
		ID:        uuid.NewString(),
		PetID:     petID,
		VisitDate: day,
		Sequence:  seq,
		Status:    StatusOpen,
		Source:    src,
		OpenedBy:  strings.TrimSpace(openedBy),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return Visit{}, err
	}
	return v, nil
}

func lockError(err error) error {
	if errors.Is(err, txn.ErrLockTimeout) && !errors.Is(err, ErrLockTimeout) {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return err
}
