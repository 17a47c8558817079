package identifiers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vet-clinic-records/internal/platform/txn"
)

type Service struct {
	counters CounterRepository
	tx       txn.Manager
	now      func() time.Time
	loc      *time.Location

	// acceptLegacyBase habilita la búsqueda con la base sola (6 dígitos).
	acceptLegacyBase bool
}

type Option func(*Service)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation fija la zona horaria de la clínica; define el año del contador.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithAcceptLegacyBase activa/desactiva la compatibilidad con identificadores sin dígito verificador.
func WithAcceptLegacyBase(accept bool) Option {
	return func(s *Service) {
		s.acceptLegacyBase = accept
	}
}

func NewService(counters CounterRepository, tx txn.Manager, opts ...Option) *Service {
	s := &Service{
		counters:         counters,
		tx:               tx,
		now:              time.Now,
		loc:              time.UTC,
		acceptLegacyBase: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScopeKey devuelve los dos últimos dígitos del año actual en la zona de la clínica.
func (s *Service) ScopeKey() string {
	return s.now().In(s.loc).Format("06")
}

// Allocate emite un identificador nuevo (base + dígito verificador).
// Si ctx trae una transacción abierta, el incremento queda atado a ella.
func (s *Service) Allocate(ctx context.Context) (string, error) {
	scope := s.ScopeKey()

	var uid string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		seq, err := s.counters.Next(ctx, scope)
		if err != nil {
			return err
		}
		if seq > MaxSequence {
			return fmt.Errorf("%w: year %s reached %d", ErrSequenceExhausted, scope, seq)
		}

		full, err := WithCheckDigit(fmt.Sprintf("%s%04d", scope, seq))
		if err != nil {
			return err
		}
		uid = full
		return nil
	})
	if err != nil {
		return "", allocationError(err)
	}
	return uid, nil
}

// Validate normaliza el candidato y devuelve la base.
// Acepta la forma canónica (7 dígitos, checksum obligatorio) y, si está habilitado,
// la base sola. Espacios y guiones se ignoran (entrada tipeada o escaneada).
func (s *Service) Validate(candidate string) (string, error) {
	id, err := s.Parse(candidate)
	if err != nil {
		return "", err
	}
	return id.Base, nil
}

// Parse es como Validate pero conserva la forma completa cuando vino.
func (s *Service) Parse(candidate string) (Identifier, error) {
	c := Normalize(candidate)
	if c == "" {
		return Identifier{}, ErrWrongLength
	}
	for i := 0; i < len(c); i++ {
		if c[i] < '0' || c[i] > '9' {
			return Identifier{}, ErrNotNumeric
		}
	}

	switch len(c) {
	case BaseLength:
		if !s.acceptLegacyBase {
			return Identifier{}, fmt.Errorf("%w: base-only identifiers are disabled", ErrWrongLength)
		}
		return Identifier{Base: c}, nil
	case FullLength:
		if !ValidChecksum(c) {
			return Identifier{}, ErrBadChecksum
		}
		return Identifier{Base: ExtractBase(c), Full: c}, nil
	default:
		return Identifier{}, ErrWrongLength
	}
}

// Normalize quita espacios y guiones.
func Normalize(candidate string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t', '\n', '\r':
			return -1
		}
		return r
	}, candidate)
}

func allocationError(err error) error {
	if errors.Is(err, txn.ErrLockTimeout) && !errors.Is(err, ErrAllocationTimeout) {
		return fmt.Errorf("%w: %w", ErrAllocationTimeout, err)
	}
	return err
}
