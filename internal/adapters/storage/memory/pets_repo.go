package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"vet-clinic-records/internal/domain/pets"
)

type petRepo struct {
	s *Store
}

func NewPetRepo(s *Store) pets.Repository {
	return &petRepo{s: s}
}

func (r *petRepo) Create(ctx context.Context, p pets.Pet) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pet id required")
	}

	return r.s.do(ctx, func(st *txState) error {
		if _, exists := r.s.pets[p.ID]; exists {
			return errors.New("pet already exists")
		}
		for _, other := range r.s.pets {
			if other.UIDBase == p.UIDBase {
				return pets.ErrUIDTaken
			}
		}

		r.s.pets[p.ID] = p
		st.onRollback(func() { delete(r.s.pets, p.ID) })
		return nil
	})
}

func (r *petRepo) Update(ctx context.Context, p pets.Pet) error {
	return r.s.do(ctx, func(st *txState) error {
		prev, exists := r.s.pets[p.ID]
		if !exists {
			return pets.ErrNotFound
		}
		// el identificador es inmutable
		p.UID, p.UIDBase = prev.UID, prev.UIDBase

		r.s.pets[p.ID] = p
		st.onRollback(func() { r.s.pets[p.ID] = prev })
		return nil
	})
}

func (r *petRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	var out pets.Pet
	err := r.s.do(ctx, func(*txState) error {
		p, ok := r.s.pets[id]
		if !ok {
			return pets.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *petRepo) GetByUIDBase(ctx context.Context, base string) (pets.Pet, error) {
	var out pets.Pet
	err := r.s.do(ctx, func(*txState) error {
		for _, p := range r.s.pets {
			if p.UIDBase == base {
				out = p
				return nil
			}
		}
		return pets.ErrNotFound
	})
	return out, err
}

// Los locks de fila ya los cubre el lock del Store.
func (r *petRepo) LockByID(ctx context.Context, id string) (pets.Pet, error) {
	return r.GetByID(ctx, id)
}

func (r *petRepo) LockByUIDBase(ctx context.Context, base string) (pets.Pet, error) {
	return r.GetByUIDBase(ctx, base)
}

func (r *petRepo) ListIncomplete(ctx context.Context) ([]pets.Pet, error) {
	return r.list(ctx, func(p pets.Pet) bool { return !p.IsComplete })
}

func (r *petRepo) ListDuplicates(ctx context.Context) ([]pets.Pet, error) {
	return r.list(ctx, func(p pets.Pet) bool { return p.IsDuplicate })
}

func (r *petRepo) ListByOwnerMobile(ctx context.Context, mobile string) ([]pets.Pet, error) {
	mobile = strings.TrimSpace(mobile)
	return r.list(ctx, func(p pets.Pet) bool { return mobile != "" && p.OwnerMobile == mobile })
}

func (r *petRepo) list(ctx context.Context, keep func(pets.Pet) bool) ([]pets.Pet, error) {
	out := make([]pets.Pet, 0)
	err := r.s.do(ctx, func(*txState) error {
		for _, p := range r.s.pets {
			if keep(p) {
				out = append(out, p)
			}
		}
		return nil
	})

	// Orden estable por created_at asc (solo para consistencia en dev)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UIDBase < out[j].UIDBase
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}
