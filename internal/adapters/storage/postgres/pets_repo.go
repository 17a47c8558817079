package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/pets"
)

const petColumns = `
	id, uid, uid_base,
	name, species, breed, sex, birth_date,
	owner_name, owner_mobile, notes,
	status, created_via, is_complete,
	is_duplicate, duplicate_of_uid,
	created_at, updated_at`

type PetsRepo struct {
	db *sql.DB
}

func NewPetsRepo(db *sql.DB) *PetsRepo {
	return &PetsRepo{db: db}
}

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO pets (`+petColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		p.ID,
		p.UID,
		p.UIDBase,
		p.Name,
		p.Species,
		p.Breed,
		p.Sex,
		toNullDate(p.BirthDate),
		p.OwnerName,
		p.OwnerMobile,
		p.Notes,
		p.Status,
		p.CreatedVia,
		p.IsComplete,
		p.IsDuplicate,
		toNullString(p.DuplicateOfUID),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return pets.ErrUIDTaken
	}
	return translate(err)
}

// Update no toca uid/uid_base: el identificador es inmutable.
func (r *PetsRepo) Update(ctx context.Context, p pets.Pet) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE pets
		SET
			name = $2,
			species = $3,
			breed = $4,
			sex = $5,
			birth_date = $6,
			owner_name = $7,
			owner_mobile = $8,
			notes = $9,
			status = $10,
			is_complete = $11,
			is_duplicate = $12,
			duplicate_of_uid = $13,
			updated_at = $14
		WHERE id = $1
	`,
		p.ID,
		p.Name,
		p.Species,
		p.Breed,
		p.Sex,
		toNullDate(p.BirthDate),
		p.OwnerName,
		p.OwnerMobile,
		p.Notes,
		p.Status,
		p.IsComplete,
		p.IsDuplicate,
		toNullString(p.DuplicateOfUID),
		p.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return pets.ErrNotFound
	}
	return nil
}

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	if strings.TrimSpace(id) == "" {
		return pets.Pet{}, pets.ErrNotFound
	}
	return r.one(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id)
}

func (r *PetsRepo) GetByUIDBase(ctx context.Context, base string) (pets.Pet, error) {
	return r.one(ctx, `SELECT `+petColumns+` FROM pets WHERE uid_base = $1`, base)
}

func (r *PetsRepo) LockByID(ctx context.Context, id string) (pets.Pet, error) {
	if strings.TrimSpace(id) == "" {
		return pets.Pet{}, pets.ErrNotFound
	}
	return r.one(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1 FOR UPDATE`, id)
}

func (r *PetsRepo) LockByUIDBase(ctx context.Context, base string) (pets.Pet, error) {
	return r.one(ctx, `SELECT `+petColumns+` FROM pets WHERE uid_base = $1 FOR UPDATE`, base)
}

func (r *PetsRepo) ListIncomplete(ctx context.Context) ([]pets.Pet, error) {
	return r.many(ctx, `SELECT `+petColumns+` FROM pets WHERE NOT is_complete ORDER BY created_at ASC`)
}

func (r *PetsRepo) ListDuplicates(ctx context.Context) ([]pets.Pet, error) {
	return r.many(ctx, `SELECT `+petColumns+` FROM pets WHERE is_duplicate ORDER BY created_at ASC`)
}

func (r *PetsRepo) ListByOwnerMobile(ctx context.Context, mobile string) ([]pets.Pet, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, nil
	}
	return r.many(ctx, `SELECT `+petColumns+` FROM pets WHERE owner_mobile = $1 ORDER BY created_at ASC`, mobile)
}

func (r *PetsRepo) one(ctx context.Context, query string, args ...any) (pets.Pet, error) {
	p, err := scanPet(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return pets.Pet{}, pets.ErrNotFound
	}
	if err != nil {
		return pets.Pet{}, translate(err)
	}
	return p, nil
}

func (r *PetsRepo) many(ctx context.Context, query string, args ...any) ([]pets.Pet, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]pets.Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPet(s scanner) (pets.Pet, error) {
	var (
		p   pets.Pet
		bd  sql.NullTime
		dup sql.NullString
	)
	if err := s.Scan(
		&p.ID,
		&p.UID,
		&p.UIDBase,
		&p.Name,
		&p.Species,
		&p.Breed,
		&p.Sex,
		&bd,
		&p.OwnerName,
		&p.OwnerMobile,
		&p.Notes,
		&p.Status,
		&p.CreatedVia,
		&p.IsComplete,
		&p.IsDuplicate,
		&dup,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return pets.Pet{}, err
	}

	if bd.Valid {
		t := bd.Time
		// ojo: birth_date es date, pgx lo mapea a time.Time midnight UTC
		p.BirthDate = &t
	}
	p.DuplicateOfUID = dup.String
	return p, nil
}

// birth_date es DATE, lo pasamos como NullTime para simplificar
func toNullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ pets.Repository = (*PetsRepo)(nil)
