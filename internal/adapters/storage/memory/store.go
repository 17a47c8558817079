package memory

import (
	"context"
	"time"

	"vet-clinic-records/internal/domain/documents"
	"vet-clinic-records/internal/domain/duplicates"
	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/domain/visits"
	"vet-clinic-records/internal/platform/txn"
)

// DefaultLockTimeout si no se configura otro.
const DefaultLockTimeout = 3 * time.Second

// Store es la base in-memory (dev/tests). Un único lock exclusivo hace las veces
// de los row locks: toda transacción lo toma con espera acotada.
// Las escrituras anotan un undo que se aplica si la transacción no llega a commit.
type Store struct {
	sem         chan struct{}
	lockTimeout time.Duration

	counters  map[string]int
	pets      map[string]pets.Pet
	visits    map[string]visits.Visit
	documents map[string]documents.Document
	audit     []duplicates.AuditEntry
}

func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		sem:         make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		counters:    make(map[string]int),
		pets:        make(map[string]pets.Pet),
		visits:      make(map[string]visits.Visit),
		documents:   make(map[string]documents.Document),
	}
}

type txKey struct{}

type txState struct {
	store *Store
	undo  []func()
}

func (st *txState) onRollback(fn func()) {
	st.undo = append(st.undo, fn)
}

func (st *txState) rollback() {
	for i := len(st.undo) - 1; i >= 0; i-- {
		st.undo[i]()
	}
	st.undo = nil
}

// WithinTx implementa txn.Manager. Una llamada anidada se une a la transacción abierta.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.current(ctx); ok {
		return fn(ctx)
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	st := &txState{store: s}
	err := fn(context.WithValue(ctx, txKey{}, st))
	if err == nil {
		// cancelado antes del commit: nada queda visible
		err = ctx.Err()
	}
	if err != nil {
		st.rollback()
		return err
	}
	return nil
}

// do corre una operación de repo: dentro de la transacción del ctx o en una propia.
func (s *Store) do(ctx context.Context, fn func(st *txState) error) error {
	if st, ok := s.current(ctx); ok {
		return fn(st)
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	st := &txState{store: s}
	if err := fn(st); err != nil {
		st.rollback()
		return err
	}
	return nil
}

func (s *Store) current(ctx context.Context) (*txState, bool) {
	st, ok := ctx.Value(txKey{}).(*txState)
	if !ok || st.store != s {
		return nil, false
	}
	return st, true
}

func (s *Store) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return txn.ErrLockTimeout
	}
}

func (s *Store) release() {
	<-s.sem
}

var _ txn.Manager = (*Store)(nil)
