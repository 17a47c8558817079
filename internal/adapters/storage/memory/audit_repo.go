package memory

import (
	"context"

	"vet-clinic-records/internal/domain/duplicates"
)

type auditRepo struct {
	s *Store
}

func NewAuditRepo(s *Store) duplicates.AuditRepository {
	return &auditRepo{s: s}
}

func (r *auditRepo) Append(ctx context.Context, e duplicates.AuditEntry) error {
	return r.s.do(ctx, func(st *txState) error {
		n := len(r.s.audit)
		r.s.audit = append(r.s.audit, e)
		st.onRollback(func() { r.s.audit = r.s.audit[:n] })
		return nil
	})
}

// ListByUIDs: de la más nueva a la más vieja (orden inverso de inserción).
func (r *auditRepo) ListByUIDs(ctx context.Context, uids []string) ([]duplicates.AuditEntry, error) {
	want := make(map[string]bool, len(uids))
	for _, u := range uids {
		want[u] = true
	}

	out := make([]duplicates.AuditEntry, 0)
	err := r.s.do(ctx, func(*txState) error {
		for i := len(r.s.audit) - 1; i >= 0; i-- {
			e := r.s.audit[i]
			if want[e.SourceUID] || (e.TargetUID != "" && want[e.TargetUID]) {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}
