package visits_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"vet-clinic-records/internal/adapters/storage/memory"
	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/domain/visits"
	"vet-clinic-records/internal/platform/txn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june1 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	svc   *visits.Service
	pets  *pets.Service
	repo  visits.Repository
	petID string
}

func setup(t *testing.T, lockTimeout time.Duration) fixture {
	t.Helper()
	store := memory.NewStore(lockTimeout)
	petRepo := memory.NewPetRepo(store)
	visitRepo := memory.NewVisitRepo(store)

	clock := func() time.Time { return time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC) }
	ids := identifiers.NewService(memory.NewCounterRepo(store), store, identifiers.WithClock(clock))

	now := clock()
	require.NoError(t, petRepo.Create(context.Background(), pets.Pet{
		ID: "pet-251001", UID: "2510018", UIDBase: "251001", Name: "Luna", Species: pets.SpeciesDog,
		Status: pets.StatusActive, CreatedVia: pets.CreatedViaWeb, CreatedAt: now, UpdatedAt: now,
	}))

	return fixture{
		store: store,
		svc:   visits.NewService(visitRepo, petRepo, store, time.UTC, visits.WithClock(clock)),
		pets:  pets.NewService(petRepo, ids, store),
		repo:  visitRepo,
		petID: "pet-251001",
	}
}

func TestEnsure_SameDayIsIdempotentUntilForced(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()

	v1, created, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, v1.Sequence)
	assert.Equal(t, visits.StatusOpen, v1.Status)

	again, created, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v1.ID, again.ID)

	v2, created, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, v2.Sequence)

	// sin force devuelve la abierta de mayor secuencia
	latest, _, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1, false)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)

	// otro día arranca en 1
	next, created, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1.AddDate(0, 0, 1), false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, next.Sequence)
}

func TestEnsure_ZeroDateMeansClinicToday(t *testing.T) {
	f := setup(t, time.Second)

	v, _, err := f.svc.EnsureOpenVisit(context.Background(), f.petID, time.Time{}, false)
	require.NoError(t, err)
	assert.True(t, v.VisitDate.Equal(june1), "got %s", v.VisitDate)
}

func TestEnsure_ClosedVisitsStillReturnedWithoutForce(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()

	v1, _, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1, false)
	require.NoError(t, err)

	closed, err := f.svc.Close(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, visits.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// idempotente
	again, err := f.svc.Close(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, closed.ClosedAt, again.ClosedAt)

	got, created, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v1.ID, got.ID)
}

func TestReopen_CreatesNextSequence(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()

	v1, _, err := f.svc.EnsureOpenVisit(ctx, f.petID, june1, false)
	require.NoError(t, err)
	_, err = f.svc.Close(ctx, v1.ID)
	require.NoError(t, err)

	v2, err := f.svc.Reopen(ctx, v1.ID, "vet-2")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Sequence)
	assert.Equal(t, visits.StatusOpen, v2.Status)
	assert.Equal(t, "vet-2", v2.OpenedBy)

	prev, err := f.svc.GetByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, visits.StatusClosed, prev.Status)
}

func TestEnsure_UnknownPatient(t *testing.T) {
	f := setup(t, time.Second)

	_, _, err := f.svc.EnsureOpenVisit(context.Background(), "nope", june1, false)
	assert.ErrorIs(t, err, visits.ErrPatientNotFound)

	_, _, err = f.svc.EnsureOpenVisit(context.Background(), "  ", june1, false)
	assert.ErrorIs(t, err, visits.ErrInvalidInput)
}

func TestEnsure_ConcurrentRequestsCreateOneVisit(t *testing.T) {
	f := setup(t, 5*time.Second)

	const n = 30
	var (
		mu      sync.Mutex
		ids     = make(map[string]bool)
		created int
		wg      sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, c, err := f.svc.EnsureOpenVisit(context.Background(), f.petID, june1, false)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[v.ID] = true
			if c {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)
}

func TestEnsure_ConcurrentForceNewIsGapFree(t *testing.T) {
	f := setup(t, 5*time.Second)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.EnsureOpenVisit(context.Background(), f.petID, june1, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := f.svc.ListForDay(context.Background(), f.petID, june1)
	require.NoError(t, err)
	require.Len(t, items, n)

	seqs := make([]int, 0, n)
	for _, v := range items {
		seqs = append(seqs, v.Sequence)
	}
	sort.Ints(seqs)
	for i, s := range seqs {
		assert.Equal(t, i+1, s)
	}
}

func TestEnsure_LockTimeout(t *testing.T) {
	f := setup(t, 50*time.Millisecond)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.store.WithinTx(context.Background(), func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	_, _, err := f.svc.EnsureOpenVisit(context.Background(), f.petID, june1, false)
	close(release)
	<-done

	assert.ErrorIs(t, err, visits.ErrLockTimeout)
	assert.True(t, txn.IsRetryable(err))
}

func TestIntakeWithVisit_AllOrNothing(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()

	p, v, err := f.svc.IntakeWithVisit(ctx, f.pets, pets.CreateInput{Name: "Kiwi", Species: "bird"}, visits.SourceMobile, "recep-1")
	require.NoError(t, err)
	assert.Equal(t, "2500010", p.UID)
	assert.Equal(t, p.ID, v.PetID)
	assert.Equal(t, 1, v.Sequence)
	assert.Equal(t, visits.SourceMobile, v.Source)

	// fuente inválida: ni paciente ni correlativo
	_, _, err = f.svc.IntakeWithVisit(ctx, f.pets, pets.CreateInput{Name: "Sol", Species: "cat"}, visits.Source("fax"), "recep-1")
	assert.ErrorIs(t, err, visits.ErrInvalidInput)

	p2, _, err := f.svc.IntakeWithVisit(ctx, f.pets, pets.CreateInput{Name: "Sol", Species: "cat"}, visits.SourceWeb, "recep-1")
	require.NoError(t, err)
	assert.Equal(t, "2500029", p2.UID)
}
