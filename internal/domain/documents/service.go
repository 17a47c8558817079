package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vet-clinic-records/internal/domain/visits"
	"vet-clinic-records/internal/platform/txn"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("document not found")
	ErrVisitNotFound     = errors.New("visit not found")
	ErrDuplicateArtifact = errors.New("duplicate artifact")
	ErrTooLarge          = errors.New("file too large")
	ErrUnsupportedType   = errors.New("unsupported file type")
	// ErrLockTimeout: la visita está tomada por otro registro. Recuperable.
	ErrLockTimeout = errors.New("document lock timeout")
)

type Deps struct {
	Repo      Repository
	Visits    VisitLocker
	Patients  PatientReader
	Sequencer *visits.Service
	Blobs     BlobStore
	Tx        txn.Manager
}

type Service struct {
	repo      Repository
	visits    VisitLocker
	patients  PatientReader
	sequencer *visits.Service
	blobs     BlobStore
	tx        txn.Manager

	now      func() time.Time
	loc      *time.Location
	maxBytes int64
}

type Option func(*Service)

// WithLocation fija la zona de la clínica (fecha del filename).
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMaxBytes cambia el límite por archivo.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(d Deps, opts ...Option) *Service {
	s := &Service{
		repo:      d.Repo,
		visits:    d.Visits,
		patients:  d.Patients,
		sequencer: d.Sequencer,
		blobs:     d.Blobs,
		tx:        d.Tx,
		now:       time.Now,
		loc:       time.UTC,
		maxBytes:  DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	VisitID      string
	Type         Type
	Content      []byte
	OriginalName string
	ContentType  string // vacío = se detecta
	Note         string
}

// Register guarda el archivo en la visita.
// Orden: checksum, lock de visita, secuencia por tipo, filename, chequeo de duplicado
// (filename OR checksum) y recién después escritura del blob + registro.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Document, error) {
	if err := s.validate(&in); err != nil {
		return Document{}, err
	}

	var (
		out Document
		key string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.register(ctx, in)
		key = d.StoragePath
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		s.discard(ctx, key)
		return Document{}, lockError(err)
	}
	return out, nil
}

// UploadForPatient asegura la visita del día (o una nueva con forceNewVisit)
// y registra el documento en la misma transacción.
func (s *Service) UploadForPatient(ctx context.Context, petID string, forceNewVisit bool, src visits.Source, actor string, in RegisterInput) (visits.Visit, Document, error) {
	if err := s.validate(&in); err != nil {
		return visits.Visit{}, Document{}, err
	}

	var (
		v   visits.Visit
		out Document
		key string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		opened, _, err := s.sequencer.Ensure(ctx, visits.EnsureInput{
			PetID:    petID,
			ForceNew: forceNewVisit,
			Source:   src,
			OpenedBy: actor,
		})
		if err != nil {
			return err
		}

		in.VisitID = opened.ID
		d, err := s.register(ctx, in)
		key = d.StoragePath
		if err != nil {
			return err
		}
		v, out = opened, d
		return nil
	})
	if err != nil {
		s.discard(ctx, key)
		return visits.Visit{}, Document{}, lockError(err)
	}
	return v, out, nil
}

// register corre dentro de la transacción del llamador.
// Si el blob llegó a escribirse, el Document devuelto trae StoragePath aunque haya error.
func (s *Service) register(ctx context.Context, in RegisterInput) (Document, error) {
	sum := sha256.Sum256(in.Content)
	checksum := hex.EncodeToString(sum[:])

	v, err := s.visits.LockByID(ctx, in.VisitID)
	if err != nil {
		if errors.Is(err, visits.ErrNotFound) {
			return Document{}, ErrVisitNotFound
		}
		return Document{}, err
	}

	p, err := s.patients.GetByID(ctx, v.PetID)
	if err != nil {
		return Document{}, err
	}

	n, err := s.repo.CountByType(ctx, v.ID, in.Type)
	if err != nil {
		return Document{}, err
	}

	captured := s.now().In(s.loc)
	filename := BuildFilename(captured, in.Type, p.UIDBase, n+1, Extension(in.OriginalName))

	dup, found, err := s.repo.FindDuplicate(ctx, v.ID, filename, checksum)
	if err != nil {
		return Document{}, err
	}
	if found {
		return Document{}, fmt.Errorf("%w: matches document %s (%s)", ErrDuplicateArtifact, dup.ID, dup.Filename)
	}

	key := StorageKey(captured, p.UIDBase, v.ID, filename)
	if err := s.blobs.Put(ctx, key, in.Content, in.ContentType); err != nil {
		return Document{}, fmt.Errorf("store blob: %w", err)
	}

	d := Document{
		ID:           uuid.NewString(),
		VisitID:      v.ID,
		PetID:        p.ID,
		PatientUID:   p.UIDBase,
		Type:         in.Type,
		Filename:     filename,
		OriginalName: strings.TrimSpace(in.OriginalName),
		StoragePath:  key,
		ContentType:  in.ContentType,
		SizeBytes:    int64(len(in.Content)),
		Note:         strings.TrimSpace(in.Note),
		Checksum:     checksum,
		CapturedAt:   captured,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return Document{StoragePath: key}, err
	}
	return d, nil
}

func (s *Service) validate(in *RegisterInput) error {
	in.Type = Type(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, in.Type)
	}
	if len(in.Content) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if int64(len(in.Content)) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(in.Content), s.maxBytes)
	}
	if ext := Extension(in.OriginalName); !allowedExt[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if len(in.Note) > MaxNoteLength {
		return fmt.Errorf("%w: note longer than %d", ErrInvalidInput, MaxNoteLength)
	}
	if strings.TrimSpace(in.ContentType) == "" || in.ContentType == "application/octet-stream" {
		in.ContentType = http.DetectContentType(in.Content)
	}
	return nil
}

// discard borra un blob huérfano, aunque el ctx del request ya esté cancelado.
func (s *Service) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	_ = s.blobs.Delete(context.WithoutCancel(ctx), key)
}

func (s *Service) GetByID(ctx context.Context, id string) (Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Content(ctx context.Context, id string) (Document, []byte, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if d.DeletedAt != nil {
		return Document{}, nil, ErrNotFound
	}
	b, err := s.blobs.Get(ctx, d.StoragePath)
	if err != nil {
		return Document{}, nil, err
	}
	return d, b, nil
}

func (s *Service) ListByVisit(ctx context.Context, visitID string) ([]Document, error) {
	return s.repo.ListByVisit(ctx, visitID)
}

// SoftDelete marca el documento como borrado; el blob se conserva.
// Libera el checksum (se puede volver a subir el mismo archivo) pero no el filename.
func (s *Service) SoftDelete(ctx context.Context, id string) (Document, error) {
	var out Document
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d.DeletedAt != nil {
			out = d
			return nil
		}
		// mismo lock que Register
		if _, err := s.visits.LockByID(ctx, d.VisitID); err != nil {
			return err
		}

		now := s.now()
		if err := s.repo.SoftDelete(ctx, id, now); err != nil {
			return err
		}
		d.DeletedAt = &now
		out = d
		return nil
	})
	if err != nil {
		return Document{}, lockError(err)
	}
	return out, nil
}

func lockError(err error) error {
	if errors.Is(err, txn.ErrLockTimeout) && !errors.Is(err, ErrLockTimeout) {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return err
}

// MaxBytes es el límite vigente por archivo.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}
