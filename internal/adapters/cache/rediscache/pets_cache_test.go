package rediscache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vet-clinic-records/internal/adapters/cache/rediscache"
	"vet-clinic-records/internal/adapters/storage/memory"
	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/platform/txn"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, pets.Repository, *rediscache.PetRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := memory.NewPetRepo(memory.NewStore(time.Second))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, inner.Create(context.Background(), pets.Pet{
		ID: "pet-1", UID: "2510018", UIDBase: "251001", Name: "Luna",
		Status: pets.StatusActive, CreatedVia: pets.CreatedViaWeb,
		CreatedAt: now, UpdatedAt: now,
	}))

	return mr, inner, rediscache.NewPetRepo(inner, rdb, time.Hour, nil)
}

func TestPetRepo_CachesBaseToID(t *testing.T) {
	mr, _, repo := setupCache(t)
	ctx := context.Background()

	p, err := repo.GetByUIDBase(ctx, "251001")
	require.NoError(t, err)
	assert.Equal(t, "pet-1", p.ID)

	got, err := mr.Get("vet:pet:uid:251001")
	require.NoError(t, err)
	assert.Equal(t, "pet-1", got)
	assert.Equal(t, time.Hour, mr.TTL("vet:pet:uid:251001"))

	// segundo hit sale de la caché
	p, err = repo.LockByUIDBase(ctx, "251001")
	require.NoError(t, err)
	assert.Equal(t, "Luna", p.Name)
}

func TestPetRepo_StaleEntryIsReplaced(t *testing.T) {
	mr, _, repo := setupCache(t)
	require.NoError(t, mr.Set("vet:pet:uid:251001", "pet-gone"))

	p, err := repo.GetByUIDBase(context.Background(), "251001")
	require.NoError(t, err)
	assert.Equal(t, "pet-1", p.ID)

	got, err := mr.Get("vet:pet:uid:251001")
	require.NoError(t, err)
	assert.Equal(t, "pet-1", got)
}

func TestPetRepo_NotFoundIsNotCached(t *testing.T) {
	mr, _, repo := setupCache(t)

	_, err := repo.GetByUIDBase(context.Background(), "259999")
	assert.ErrorIs(t, err, pets.ErrNotFound)
	assert.False(t, mr.Exists("vet:pet:uid:259999"))
}

func TestPetRepo_RedisDownFallsThrough(t *testing.T) {
	mr, _, repo := setupCache(t)
	mr.Close()

	p, err := repo.GetByUIDBase(context.Background(), "251001")
	require.NoError(t, err)
	assert.Equal(t, "pet-1", p.ID)
}

// lockTimeoutRepo simula un SELECT ... FOR UPDATE que vence: después del error
// la transacción quedó abortada y cualquier otra consulta falla.
type lockTimeoutRepo struct {
	pets.Repository
	requeried int
}

func (r *lockTimeoutRepo) LockByID(context.Context, string) (pets.Pet, error) {
	return pets.Pet{}, fmt.Errorf("lock pet: %w", txn.ErrLockTimeout)
}

func (r *lockTimeoutRepo) LockByUIDBase(context.Context, string) (pets.Pet, error) {
	r.requeried++
	return pets.Pet{}, fmt.Errorf("current transaction is aborted")
}

func TestPetRepo_LockTimeoutOnCachedIDIsReturned(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, mr.Set("vet:pet:uid:251001", "pet-1"))

	inner := &lockTimeoutRepo{Repository: memory.NewPetRepo(memory.NewStore(time.Second))}
	repo := rediscache.NewPetRepo(inner, rdb, time.Hour, nil)

	_, err := repo.LockByUIDBase(context.Background(), "251001")
	assert.ErrorIs(t, err, txn.ErrLockTimeout)
	assert.True(t, txn.IsRetryable(err))
	assert.Zero(t, inner.requeried, "no second query after the lock error")

	// la entrada sigue siendo válida
	assert.True(t, mr.Exists("vet:pet:uid:251001"))
}
