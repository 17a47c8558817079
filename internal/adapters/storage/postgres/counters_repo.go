package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vet-clinic-records/internal/domain/identifiers"
)

type CountersRepo struct {
	db *sql.DB
}

func NewCountersRepo(db *sql.DB) *CountersRepo {
	return &CountersRepo{db: db}
}

// Next crea la fila del año si falta e incrementa en un solo statement.
// El UPDATE del ON CONFLICT deja la fila bloqueada hasta el fin de la transacción.
func (r *CountersRepo) Next(ctx context.Context, yearTwo string) (int, error) {
	var seq int
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO year_counters (year_two, last_seq, created_at, updated_at)
		VALUES ($1, 1, now(), now())
		ON CONFLICT (year_two) DO UPDATE
		SET last_seq = year_counters.last_seq + 1,
			updated_at = now()
		RETURNING last_seq
	`, yearTwo).Scan(&seq)
	if err != nil {
		return 0, translate(err)
	}
	return seq, nil
}

func (r *CountersRepo) Current(ctx context.Context, yearTwo string) (int, error) {
	var seq int
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT last_seq FROM year_counters WHERE year_two = $1
	`, yearTwo).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, translate(err)
	}
	return seq, nil
}

var _ identifiers.CounterRepository = (*CountersRepo)(nil)
