package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"vet-clinic-records/internal/domain/visits"
)

type visitRepo struct {
	s *Store
}

func NewVisitRepo(s *Store) visits.Repository {
	return &visitRepo{s: s}
}

func (r *visitRepo) Create(ctx context.Context, v visits.Visit) error {
	if v.ID == "" {
		return errors.New("visit id required")
	}

	return r.s.do(ctx, func(st *txState) error {
		for _, other := range r.s.visits {
			if other.PetID == v.PetID && other.VisitDate.Equal(v.VisitDate) && other.Sequence == v.Sequence {
				return visits.ErrSequenceTaken
			}
		}

		r.s.visits[v.ID] = v
		st.onRollback(func() { delete(r.s.visits, v.ID) })
		return nil
	})
}

func (r *visitRepo) Update(ctx context.Context, v visits.Visit) error {
	return r.s.do(ctx, func(st *txState) error {
		prev, ok := r.s.visits[v.ID]
		if !ok {
			return visits.ErrNotFound
		}
		r.s.visits[v.ID] = v
		st.onRollback(func() { r.s.visits[v.ID] = prev })
		return nil
	})
}

func (r *visitRepo) GetByID(ctx context.Context, id string) (visits.Visit, error) {
	var out visits.Visit
	err := r.s.do(ctx, func(*txState) error {
		v, ok := r.s.visits[id]
		if !ok {
			return visits.ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

func (r *visitRepo) LockByID(ctx context.Context, id string) (visits.Visit, error) {
	return r.GetByID(ctx, id)
}

func (r *visitRepo) ListForDay(ctx context.Context, petID string, day time.Time) ([]visits.Visit, error) {
	out := make([]visits.Visit, 0)
	err := r.s.do(ctx, func(*txState) error {
		for _, v := range r.s.visits {
			if v.PetID == petID && v.VisitDate.Equal(day) {
				out = append(out, v)
			}
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}
