package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vet-clinic-records/internal/domain/visits"
)

const visitColumns = `
	id, pet_id, visit_date, sequence,
	status, source, opened_by,
	created_at, updated_at, closed_at`

type VisitsRepo struct {
	db *sql.DB
}

func NewVisitsRepo(db *sql.DB) *VisitsRepo {
	return &VisitsRepo{db: db}
}

func (r *VisitsRepo) Create(ctx context.Context, v visits.Visit) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO visits (`+visitColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		v.ID,
		v.PetID,
		v.VisitDate,
		v.Sequence,
		v.Status,
		v.Source,
		v.OpenedBy,
		v.CreatedAt,
		v.UpdatedAt,
		toNullTime(v.ClosedAt),
	)
	if isUniqueViolation(err) {
		return visits.ErrSequenceTaken
	}
	return translate(err)
}

// Update solo cambia estado: fecha y secuencia quedan fijas al crear.
func (r *VisitsRepo) Update(ctx context.Context, v visits.Visit) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE visits
		SET status = $2, updated_at = $3, closed_at = $4
		WHERE id = $1
	`, v.ID, v.Status, v.UpdatedAt, toNullTime(v.ClosedAt))
	if err != nil {
		return translate(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return visits.ErrNotFound
	}
	return nil
}

func (r *VisitsRepo) GetByID(ctx context.Context, id string) (visits.Visit, error) {
	return r.one(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
}

func (r *VisitsRepo) LockByID(ctx context.Context, id string) (visits.Visit, error) {
	return r.one(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1 FOR UPDATE`, id)
}

func (r *VisitsRepo) ListForDay(ctx context.Context, petID string, day time.Time) ([]visits.Visit, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE pet_id = $1 AND visit_date = $2
		ORDER BY sequence ASC
	`, petID, day)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]visits.Visit, 0)
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VisitsRepo) one(ctx context.Context, query string, args ...any) (visits.Visit, error) {
	v, err := scanVisit(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return visits.Visit{}, visits.ErrNotFound
	}
	if err != nil {
		return visits.Visit{}, translate(err)
	}
	return v, nil
}

func scanVisit(s scanner) (visits.Visit, error) {
	var (
		v      visits.Visit
		closed sql.NullTime
	)
	if err := s.Scan(
		&v.ID,
		&v.PetID,
		&v.VisitDate,
		&v.Sequence,
		&v.Status,
		&v.Source,
		&v.OpenedBy,
		&v.CreatedAt,
		&v.UpdatedAt,
		&closed,
	); err != nil {
		return visits.Visit{}, err
	}
	v.VisitDate = visits.Day(v.VisitDate, time.UTC)
	if closed.Valid {
		t := closed.Time
		v.ClosedAt = &t
	}
	return v, nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ visits.Repository = (*VisitsRepo)(nil)
