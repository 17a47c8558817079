package memory

import (
	"context"

	"vet-clinic-records/internal/domain/identifiers"
)

type counterRepo struct {
	s *Store
}

func NewCounterRepo(s *Store) identifiers.CounterRepository {
	return &counterRepo{s: s}
}

func (r *counterRepo) Next(ctx context.Context, yearTwo string) (int, error) {
	var next int
	err := r.s.do(ctx, func(st *txState) error {
		prev, existed := r.s.counters[yearTwo]
		next = prev + 1
		r.s.counters[yearTwo] = next

		st.onRollback(func() {
			if existed {
				r.s.counters[yearTwo] = prev
				return
			}
			delete(r.s.counters, yearTwo)
		})
		return nil
	})
	return next, err
}

func (r *counterRepo) Current(ctx context.Context, yearTwo string) (int, error) {
	var cur int
	err := r.s.do(ctx, func(*txState) error {
		cur = r.s.counters[yearTwo]
		return nil
	})
	return cur, err
}
