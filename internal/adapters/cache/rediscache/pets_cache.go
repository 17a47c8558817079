// Package rediscache resuelve uid_base -> id de paciente usando Redis como caché.
// El uid no cambia nunca, así que la entrada solo puede quedar vieja si la
// transacción que la leyó se revirtió; en ese caso se detecta y se borra.
package rediscache

import (
	"context"
	"errors"
	"time"

	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "vet:pet:uid:"
	DefaultTTL = 24 * time.Hour
)

type PetRepo struct {
	pets.Repository

	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

// NewPetRepo envuelve inner. Los errores de Redis nunca llegan al llamador:
// se loguean y se cae al repo.
func NewPetRepo(inner pets.Repository, rdb *redis.Client, ttl time.Duration, log logger.Logger) *PetRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PetRepo{Repository: inner, rdb: rdb, ttl: ttl, log: log}
}

func (r *PetRepo) GetByUIDBase(ctx context.Context, base string) (pets.Pet, error) {
	p, ok, err := r.cached(ctx, base, r.Repository.GetByID)
	if err != nil {
		return pets.Pet{}, err
	}
	if ok {
		return p, nil
	}
	p, err = r.Repository.GetByUIDBase(ctx, base)
	if err != nil {
		return pets.Pet{}, err
	}
	r.remember(ctx, p)
	return p, nil
}

// LockByUIDBase bloquea por id cuando la caché lo conoce; el lock es el mismo.
func (r *PetRepo) LockByUIDBase(ctx context.Context, base string) (pets.Pet, error) {
	p, ok, err := r.cached(ctx, base, r.Repository.LockByID)
	if err != nil {
		return pets.Pet{}, err
	}
	if ok {
		return p, nil
	}
	p, err = r.Repository.LockByUIDBase(ctx, base)
	if err != nil {
		return pets.Pet{}, err
	}
	r.remember(ctx, p)
	return p, nil
}

// cached carga por el id guardado. Un error del repo distinto de ErrNotFound se
// devuelve tal cual: la transacción puede haber quedado abortada (lock timeout)
// y no admite otra consulta.
func (r *PetRepo) cached(ctx context.Context, base string, load func(context.Context, string) (pets.Pet, error)) (pets.Pet, bool, error) {
	key := keyPrefix + base
	id, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return pets.Pet{}, false, nil
	}
	if err != nil {
		r.log.Warn("redis get failed", map[string]any{"key": key, "err": err})
		return pets.Pet{}, false, nil
	}

	p, err := load(ctx, id)
	if err == nil && p.UIDBase == base {
		return p, true, nil
	}
	if err != nil && !errors.Is(err, pets.ErrNotFound) {
		return pets.Pet{}, false, err
	}

	r.log.Debug("stale uid cache entry", map[string]any{"key": key, "id": id})
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		r.log.Warn("redis del failed", map[string]any{"key": key, "err": err})
	}
	return pets.Pet{}, false, nil
}

func (r *PetRepo) remember(ctx context.Context, p pets.Pet) {
	key := keyPrefix + p.UIDBase
	if err := r.rdb.Set(ctx, key, p.ID, r.ttl).Err(); err != nil {
		r.log.Warn("redis set failed", map[string]any{"key": key, "err": err})
	}
}

var _ pets.Repository = (*PetRepo)(nil)
