package duplicates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/platform/txn"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("patient not found")
	ErrSameIdentifier = errors.New("source and target are the same patient")
	ErrAlreadyMarked  = errors.New("patient already marked as duplicate of another patient")
	ErrNotMarked      = errors.New("patient is not marked as duplicate")
	ErrDuplicateCycle = errors.New("target is marked as duplicate of source")
)

type Service struct {
	audit    AuditRepository
	patients PatientStore
	ids      *identifiers.Service
	tx       txn.Manager
	now      func() time.Time
}

func NewService(audit AuditRepository, patients PatientStore, ids *identifiers.Service, tx txn.Manager) *Service {
	return &Service{
		audit:    audit,
		patients: patients,
		ids:      ids,
		tx:       tx,
		now:      time.Now,
	}
}

// MarkDuplicate marca source como duplicado de target y deja registro.
// Re-marcar contra el mismo target no cambia el estado pero igual registra.
func (s *Service) MarkDuplicate(ctx context.Context, source, target, reason, actor string) (pets.Pet, error) {
	src, tgt, err := s.pair(source, target, actor)
	if err != nil {
		return pets.Pet{}, err
	}

	var out pets.Pet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, t, err := s.lockPair(ctx, src, tgt)
		if err != nil {
			return err
		}

		if t.IsDuplicate && t.DuplicateOfUID == src {
			return ErrDuplicateCycle
		}
		if p.IsDuplicate && p.DuplicateOfUID != tgt {
			return fmt.Errorf("%w: %s", ErrAlreadyMarked, p.DuplicateOfUID)
		}

		if !p.IsDuplicate {
			p.IsDuplicate = true
			p.DuplicateOfUID = tgt
			p.UpdatedAt = s.now()
			if err := s.patients.Update(ctx, p); err != nil {
				return err
			}
		}

		out = p
		return s.append(ctx, ActionMark, src, tgt, reason, actor)
	})
	if err != nil {
		return pets.Pet{}, err
	}
	return out, nil
}

// UnmarkDuplicate limpia la marca; el registro guarda el target anterior.
func (s *Service) UnmarkDuplicate(ctx context.Context, uid, reason, actor string) (pets.Pet, error) {
	if strings.TrimSpace(actor) == "" {
		return pets.Pet{}, fmt.Errorf("%w: actor is required", ErrInvalidInput)
	}
	base, err := s.ids.Validate(uid)
	if err != nil {
		return pets.Pet{}, err
	}

	var out pets.Pet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.lock(ctx, base)
		if err != nil {
			return err
		}
		if !p.IsDuplicate {
			return ErrNotMarked
		}

		prior := p.DuplicateOfUID
		p.IsDuplicate = false
		p.DuplicateOfUID = ""
		p.UpdatedAt = s.now()
		if err := s.patients.Update(ctx, p); err != nil {
			return err
		}

		out = p
		return s.append(ctx, ActionUnmark, base, prior, reason, actor)
	})
	if err != nil {
		return pets.Pet{}, err
	}
	return out, nil
}

// CrossReference vincula dos pacientes solo en el log (no cambia estado).
func (s *Service) CrossReference(ctx context.Context, source, target, reason, actor string) (AuditEntry, error) {
	src, tgt, err := s.pair(source, target, actor)
	if err != nil {
		return AuditEntry{}, err
	}

	var out AuditEntry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.get(ctx, src); err != nil {
			return err
		}
		if _, err := s.get(ctx, tgt); err != nil {
			return err
		}
		e := s.entry(ActionCrossReference, src, tgt, reason, actor)
		if err := s.audit.Append(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return AuditEntry{}, err
	}
	return out, nil
}

// History devuelve el log de uno o más identificadores (vista de comparación).
func (s *Service) History(ctx context.Context, uids ...string) ([]AuditEntry, error) {
	if len(uids) == 0 {
		return nil, fmt.Errorf("%w: at least one uid is required", ErrInvalidInput)
	}

	bases := make([]string, 0, len(uids))
	for _, u := range uids {
		b, err := s.ids.Validate(u)
		if err != nil {
			return nil, err
		}
		bases = append(bases, b)
	}
	return s.audit.ListByUIDs(ctx, bases)
}

func (s *Service) pair(source, target, actor string) (string, string, error) {
	if strings.TrimSpace(actor) == "" {
		return "", "", fmt.Errorf("%w: actor is required", ErrInvalidInput)
	}
	src, err := s.ids.Validate(source)
	if err != nil {
		return "", "", err
	}
	tgt, err := s.ids.Validate(target)
	if err != nil {
		return "", "", err
	}
	if src == tgt {
		return "", "", ErrSameIdentifier
	}
	return src, tgt, nil
}

func (s *Service) lock(ctx context.Context, base string) (pets.Pet, error) {
	p, err := s.patients.LockByUIDBase(ctx, base)
	if errors.Is(err, pets.ErrNotFound) {
		return pets.Pet{}, fmt.Errorf("%w: %s", ErrNotFound, base)
	}
	return p, err
}

// lockPair bloquea ambas filas, siempre la base menor primero: A->B y B->A
// concurrentes se serializan y el chequeo de ciclo ve el estado commiteado.
func (s *Service) lockPair(ctx context.Context, src, tgt string) (pets.Pet, pets.Pet, error) {
	first, second := src, tgt
	if second < first {
		first, second = second, first
	}
	a, err := s.lock(ctx, first)
	if err != nil {
		return pets.Pet{}, pets.Pet{}, err
	}
	b, err := s.lock(ctx, second)
	if err != nil {
		return pets.Pet{}, pets.Pet{}, err
	}
	if first == src {
		return a, b, nil
	}
	return b, a, nil
}

func (s *Service) get(ctx context.Context, base string) (pets.Pet, error) {
	p, err := s.patients.GetByUIDBase(ctx, base)
	if errors.Is(err, pets.ErrNotFound) {
		return pets.Pet{}, fmt.Errorf("%w: %s", ErrNotFound, base)
	}
	return p, err
}

func (s *Service) append(ctx context.Context, a Action, src, tgt, reason, actor string) error {
	return s.audit.Append(ctx, s.entry(a, src, tgt, reason, actor))
}

func (s *Service) entry(a Action, src, tgt, reason, actor string) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		Action:    a,
		SourceUID: src,
		TargetUID: tgt,
		ActorID:   strings.TrimSpace(actor),
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.now(),
	}
}
