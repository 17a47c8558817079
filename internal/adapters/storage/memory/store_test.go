package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/platform/txn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RollbackOnError(t *testing.T) {
	s := NewStore(time.Second)
	counters := NewCounterRepo(s)
	petsRepo := NewPetRepo(s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		n, err := counters.Next(ctx, "25")
		require.NoError(t, err)
		require.Equal(t, 1, n)

		require.NoError(t, petsRepo.Create(ctx, pets.Pet{ID: "p1", UIDBase: "250001"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	cur, err := counters.Current(ctx, "25")
	require.NoError(t, err)
	assert.Equal(t, 0, cur)

	_, err = petsRepo.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, pets.ErrNotFound)
}

func TestStore_RollbackWhenContextCancelledBeforeCommit(t *testing.T) {
	s := NewStore(time.Second)
	counters := NewCounterRepo(s)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		_, err := counters.Next(ctx, "25")
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)

	cur, err := counters.Current(context.Background(), "25")
	require.NoError(t, err)
	assert.Equal(t, 0, cur)
}

func TestStore_NestedTxJoinsOuter(t *testing.T) {
	s := NewStore(50 * time.Millisecond)
	counters := NewCounterRepo(s)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		// si no se uniera, esperaría el lock que ya tenemos y daría timeout
		return s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := counters.Next(ctx, "25")
			return err
		})
	})
	require.NoError(t, err)

	cur, _ := counters.Current(ctx, "25")
	assert.Equal(t, 1, cur)
}

func TestStore_LockWaitIsBounded(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	counters := NewCounterRepo(s)

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	_, err := counters.Next(context.Background(), "25")
	require.ErrorIs(t, err, txn.ErrLockTimeout)
	assert.True(t, txn.IsRetryable(err))
}

func TestDocumentRepo_ChecksumFreedBySoftDeleteButFilenameIsNot(t *testing.T) {
	s := NewStore(time.Second)
	repo := NewDocumentRepo(s)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, docFixture("d1", "v1", "010625-lab-250001-01.pdf", "abc")))
	require.NoError(t, repo.SoftDelete(ctx, "d1", time.Now()))

	_, found, err := repo.FindDuplicate(ctx, "v1", "010625-lab-250001-02.pdf", "abc")
	require.NoError(t, err)
	assert.False(t, found, "checksum of a deleted document must not block")

	_, found, err = repo.FindDuplicate(ctx, "v1", "010625-lab-250001-01.pdf", "zzz")
	require.NoError(t, err)
	assert.True(t, found, "filename of a deleted document still blocks")

	n, err := repo.CountByType(ctx, "v1", "lab")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
