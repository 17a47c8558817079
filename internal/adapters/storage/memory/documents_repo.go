package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"vet-clinic-records/internal/domain/documents"
)

type documentRepo struct {
	s *Store
}

func NewDocumentRepo(s *Store) documents.Repository {
	return &documentRepo{s: s}
}

func (r *documentRepo) Create(ctx context.Context, d documents.Document) error {
	if d.ID == "" {
		return errors.New("document id required")
	}

	return r.s.do(ctx, func(st *txState) error {
		if _, found := r.findDuplicate(d.VisitID, d.Filename, d.Checksum); found {
			return documents.ErrDuplicateArtifact
		}

		r.s.documents[d.ID] = d
		st.onRollback(func() { delete(r.s.documents, d.ID) })
		return nil
	})
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (documents.Document, error) {
	var out documents.Document
	err := r.s.do(ctx, func(*txState) error {
		d, ok := r.s.documents[id]
		if !ok {
			return documents.ErrNotFound
		}
		out = d
		return nil
	})
	return out, err
}

func (r *documentRepo) CountByType(ctx context.Context, visitID string, t documents.Type) (int, error) {
	n := 0
	err := r.s.do(ctx, func(*txState) error {
		for _, d := range r.s.documents {
			if d.VisitID == visitID && d.Type == t {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *documentRepo) FindDuplicate(ctx context.Context, visitID, filename, checksum string) (documents.Document, bool, error) {
	var (
		out   documents.Document
		found bool
	)
	err := r.s.do(ctx, func(*txState) error {
		out, found = r.findDuplicate(visitID, filename, checksum)
		return nil
	})
	return out, found, err
}

// findDuplicate: filename contra todos, checksum solo contra los no borrados.
func (r *documentRepo) findDuplicate(visitID, filename, checksum string) (documents.Document, bool) {
	for _, d := range r.s.documents {
		if d.VisitID != visitID {
			continue
		}
		if d.Filename == filename {
			return d, true
		}
		if d.DeletedAt == nil && d.Checksum == checksum {
			return d, true
		}
	}
	return documents.Document{}, false
}

func (r *documentRepo) ListByVisit(ctx context.Context, visitID string) ([]documents.Document, error) {
	out := make([]documents.Document, 0)
	err := r.s.do(ctx, func(*txState) error {
		for _, d := range r.s.documents {
			if d.VisitID == visitID && d.DeletedAt == nil {
				out = append(out, d)
			}
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Filename < out[j].Filename
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r *documentRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.s.do(ctx, func(st *txState) error {
		prev, ok := r.s.documents[id]
		if !ok {
			return documents.ErrNotFound
		}
		d := prev
		d.DeletedAt = &at
		r.s.documents[id] = d
		st.onRollback(func() { r.s.documents[id] = prev })
		return nil
	})
}
