package identifiers_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"vet-clinic-records/internal/adapters/storage/memory"
	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/platform/txn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newService(t *testing.T, lockTimeout time.Duration, opts ...identifiers.Option) (*identifiers.Service, *memory.Store, identifiers.CounterRepository) {
	t.Helper()
	store := memory.NewStore(lockTimeout)
	counters := memory.NewCounterRepo(store)
	return identifiers.NewService(counters, store, opts...), store, counters
}

func TestAllocate_FirstOfYear(t *testing.T) {
	svc, _, _ := newService(t, time.Second, identifiers.WithClock(fixedClock(time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC))))

	uid, err := svc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2500010", uid)

	uid, err = svc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2500029", uid)
}

func TestAllocate_ConcurrentIsGapFreeAndUnique(t *testing.T) {
	svc, _, _ := newService(t, 5*time.Second, identifiers.WithClock(fixedClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))))

	const n = 100
	var (
		mu   sync.Mutex
		got  []string
		wg   sync.WaitGroup
		errs = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uid, err := svc.Allocate(context.Background())
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			got = append(got, uid)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, got, n)
	bases := make([]string, 0, n)
	for _, uid := range got {
		require.True(t, identifiers.ValidChecksum(uid), uid)
		bases = append(bases, identifiers.ExtractBase(uid))
	}
	sort.Strings(bases)
	assert.Equal(t, "250001", bases[0])
	assert.Equal(t, "250100", bases[n-1])
	for i := 1; i < n; i++ {
		assert.NotEqual(t, bases[i-1], bases[i])
	}
}

func TestAllocate_YearScopeUsesClinicTimezone(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 31/12 20:00 UTC ya es 1/1 en la clínica
	svc, _, counters := newService(t, time.Second,
		identifiers.WithClock(fixedClock(time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC))),
		identifiers.WithLocation(kolkata),
	)
	assert.Equal(t, "26", svc.ScopeKey())

	uid, err := svc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "260001", identifiers.ExtractBase(uid))

	cur, err := counters.Current(context.Background(), "25")
	require.NoError(t, err)
	assert.Zero(t, cur)
}

func TestAllocate_YearRolloverRestartsSequence(t *testing.T) {
	now := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	svc, _, _ := newService(t, time.Second, identifiers.WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		_, err := svc.Allocate(context.Background())
		require.NoError(t, err)
	}

	now = time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	uid, err := svc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2600019", uid)
}

func TestAllocate_RollsBackWithEnclosingTransaction(t *testing.T) {
	svc, store, counters := newService(t, time.Second, identifiers.WithClock(fixedClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))))
	ctx := context.Background()
	boom := errors.New("insert failed")

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		_, err := svc.Allocate(ctx)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	cur, err := counters.Current(ctx, "25")
	require.NoError(t, err)
	assert.Zero(t, cur)

	uid, err := svc.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2500010", uid)
}

func TestAllocate_LockTimeoutIsRecoverable(t *testing.T) {
	svc, store, _ := newService(t, 50*time.Millisecond)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.WithinTx(context.Background(), func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	_, err := svc.Allocate(context.Background())
	close(release)
	<-done

	require.Error(t, err)
	assert.ErrorIs(t, err, identifiers.ErrAllocationTimeout)
	assert.True(t, txn.IsRetryable(err))
	assert.False(t, errors.Is(err, identifiers.ErrInvalidIdentifier))
}

type fullCounter struct{}

func (fullCounter) Next(context.Context, string) (int, error)    { return identifiers.MaxSequence + 1, nil }
func (fullCounter) Current(context.Context, string) (int, error) { return identifiers.MaxSequence, nil }

func TestAllocate_SequenceExhausted(t *testing.T) {
	store := memory.NewStore(time.Second)
	svc := identifiers.NewService(fullCounter{}, store)

	_, err := svc.Allocate(context.Background())
	assert.ErrorIs(t, err, identifiers.ErrSequenceExhausted)
}

func TestValidate(t *testing.T) {
	svc, _, _ := newService(t, time.Second)

	cases := []struct {
		in       string
		wantBase string
		wantErr  error
	}{
		{in: "2500010", wantBase: "250001"},
		{in: "250-001-0", wantBase: "250001"},
		{in: " 2510018\n", wantBase: "251001"},
		{in: "250001", wantBase: "250001"},
		{in: "2500017", wantErr: identifiers.ErrBadChecksum},
		{in: "2500019", wantErr: identifiers.ErrBadChecksum},
		{in: "25O0010", wantErr: identifiers.ErrNotNumeric},
		{in: "", wantErr: identifiers.ErrWrongLength},
		{in: "25000100", wantErr: identifiers.ErrWrongLength},
		{in: "2500", wantErr: identifiers.ErrWrongLength},
	}
	for _, tc := range cases {
		base, err := svc.Validate(tc.in)
		if tc.wantErr != nil {
			assert.ErrorIs(t, err, tc.wantErr, "input %q", tc.in)
			assert.ErrorIs(t, err, identifiers.ErrInvalidIdentifier, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.wantBase, base, "input %q", tc.in)
	}
}

func TestValidate_LegacyBaseDisabled(t *testing.T) {
	svc, _, _ := newService(t, time.Second, identifiers.WithAcceptLegacyBase(false))

	_, err := svc.Validate("250001")
	assert.ErrorIs(t, err, identifiers.ErrWrongLength)

	base, err := svc.Validate("2500010")
	require.NoError(t, err)
	assert.Equal(t, "250001", base)
}

func TestParse_KeepsCanonicalForm(t *testing.T) {
	svc, _, _ := newService(t, time.Second)

	id, err := svc.Parse("2510018")
	require.NoError(t, err)
	assert.Equal(t, identifiers.Identifier{Base: "251001", Full: "2510018"}, id)

	id, err = svc.Parse("251001")
	require.NoError(t, err)
	assert.Empty(t, id.Full)
}
