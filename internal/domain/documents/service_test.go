package documents_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vet-clinic-records/internal/adapters/storage/memory"
	"vet-clinic-records/internal/domain/documents"
	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/domain/visits"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	june1   = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	capture = time.Date(2025, 6, 1, 11, 15, 0, 0, time.UTC)

	xray = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{1}, 32)...)
	lab  = append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{2}, 32)...)
)

type failingCreate struct {
	documents.Repository
	err error
}

func (f failingCreate) Create(context.Context, documents.Document) error { return f.err }

type toggledCreate struct {
	documents.Repository
	fail *bool
	err  error
}

func (c toggledCreate) Create(ctx context.Context, d documents.Document) error {
	if *c.fail {
		return c.err
	}
	return c.Repository.Create(ctx, d)
}

type fixture struct {
	svc    *documents.Service
	visits *visits.Service
	blobs  *memory.BlobStore
	repo   documents.Repository
	petID  string
}

func setup(t *testing.T, wrap func(documents.Repository) documents.Repository, opts ...documents.Option) fixture {
	t.Helper()
	store := memory.NewStore(time.Second)
	petRepo := memory.NewPetRepo(store)
	visitRepo := memory.NewVisitRepo(store)
	docRepo := memory.NewDocumentRepo(store)
	if wrap != nil {
		docRepo = wrap(docRepo)
	}
	blobs := memory.NewBlobStore()

	require.NoError(t, petRepo.Create(context.Background(), pets.Pet{
		ID: "pet-251001", UID: "2510018", UIDBase: "251001", Name: "Luna", Species: pets.SpeciesDog,
		Status: pets.StatusActive, CreatedVia: pets.CreatedViaWeb, CreatedAt: capture, UpdatedAt: capture,
	}))

	clock := func() time.Time { return capture }
	visitsSvc := visits.NewService(visitRepo, petRepo, store, time.UTC, visits.WithClock(clock))
	opts = append([]documents.Option{documents.WithClock(clock)}, opts...)
	svc := documents.NewService(documents.Deps{
		Repo:      docRepo,
		Visits:    visitRepo,
		Patients:  petRepo,
		Sequencer: visitsSvc,
		Blobs:     blobs,
		Tx:        store,
	}, opts...)

	return fixture{svc: svc, visits: visitsSvc, blobs: blobs, repo: docRepo, petID: "pet-251001"}
}

func (f fixture) openVisit(t *testing.T, forceNew bool) visits.Visit {
	t.Helper()
	v, _, err := f.visits.EnsureOpenVisit(context.Background(), f.petID, june1, forceNew)
	require.NoError(t, err)
	return v
}

func TestRegister_FilenameAndStorageKey(t *testing.T) {
	f := setup(t, nil)
	v := f.openVisit(t, false)
	ctx := context.Background()

	d1, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v.ID, Type: "XRay", Content: xray, OriginalName: "IMG_001.JPG"})
	require.NoError(t, err)
	assert.Equal(t, "010625-xray-251001-01.jpg", d1.Filename)
	assert.Equal(t, "patients/2025/251001/"+v.ID+"/010625-xray-251001-01.jpg", d1.StoragePath)
	assert.Equal(t, "image/jpeg", d1.ContentType)
	assert.Len(t, d1.Checksum, 64)

	// segundo xray de la visita: secuencia 02
	other := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{9}, 32)...)
	d2, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v.ID, Type: documents.TypeXRay, Content: other, OriginalName: "b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "010625-xray-251001-02.jpg", d2.Filename)

	// otro tipo arranca en 01
	d3, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v.ID, Type: documents.TypeLab, Content: lab, OriginalName: "cbc.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "010625-lab-251001-01.pdf", d3.Filename)

	stored, err := f.blobs.Get(ctx, d1.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, xray, stored)

	list, err := f.svc.ListByVisit(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestRegister_SameContentIsDuplicateRegardlessOfTypeOrNote(t *testing.T) {
	f := setup(t, nil)
	v := f.openVisit(t, false)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v.ID, Type: documents.TypeXRay, Content: xray, OriginalName: "a.jpg", Note: "torax"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, documents.RegisterInput{VisitID: v.ID, Type: documents.TypePhoto, Content: xray, OriginalName: "copy.png", Note: "otra nota"})
	assert.ErrorIs(t, err, documents.ErrDuplicateArtifact)
	assert.Len(t, f.blobs.Keys(), 1, "duplicate must not leave a blob behind")

	// en otra visita el mismo contenido es válido
	v2 := f.openVisit(t, true)
	_, err = f.svc.Register(ctx, documents.RegisterInput{VisitID: v2.ID, Type: documents.TypeXRay, Content: xray, OriginalName: "a.jpg"})
	require.NoError(t, err)
}

func TestRegister_ClosedVisitAcceptsDocuments(t *testing.T) {
	f := setup(t, nil)
	v := f.openVisit(t, false)
	_, err := f.visits.Close(context.Background(), v.ID)
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), documents.RegisterInput{VisitID: v.ID, Type: documents.TypeReport, Content: lab, OriginalName: "r.pdf"})
	require.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	f := setup(t, nil, documents.WithMaxBytes(16))
	v := f.openVisit(t, false)
	ctx := context.Background()

	cases := []struct {
		name string
		in   documents.RegisterInput
		want error
	}{
		{"unknown type", documents.RegisterInput{VisitID: v.ID, Type: "scan", Content: []byte("x"), OriginalName: "a.jpg"}, documents.ErrInvalidInput},
		{"empty", documents.RegisterInput{VisitID: v.ID, Type: documents.TypeLab, OriginalName: "a.pdf"}, documents.ErrInvalidInput},
		{"too large", documents.RegisterInput{VisitID: v.ID, Type: documents.TypeLab, Content: lab, OriginalName: "a.pdf"}, documents.ErrTooLarge},
		{"extension", documents.RegisterInput{VisitID: v.ID, Type: documents.TypeLab, Content: []byte("x"), OriginalName: "a.docx"}, documents.ErrUnsupportedType},
		{"note", documents.RegisterInput{VisitID: v.ID, Type: documents.TypeLab, Content: []byte("x"), OriginalName: "a.pdf", Note: strings.Repeat("n", documents.MaxNoteLength+1)}, documents.ErrInvalidInput},
		{"visit", documents.RegisterInput{VisitID: "missing", Type: documents.TypeLab, Content: []byte("x"), OriginalName: "a.pdf"}, documents.ErrVisitNotFound},
	}
	for _, tc := range cases {
		_, err := f.svc.Register(ctx, tc.in)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
	assert.Empty(t, f.blobs.Keys())
}

func TestRegister_RecordFailureDiscardsBlob(t *testing.T) {
	boom := errors.New("insert failed")
	f := setup(t, func(r documents.Repository) documents.Repository { return failingCreate{Repository: r, err: boom} })
	v := f.openVisit(t, false)

	_, err := f.svc.Register(context.Background(), documents.RegisterInput{VisitID: v.ID, Type: documents.TypeXRay, Content: xray, OriginalName: "a.jpg"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.blobs.Keys())
}

func TestSoftDelete_FreesChecksumButNotFilename(t *testing.T) {
	f := setup(t, nil)
	v := f.openVisit(t, false)
	ctx := context.Background()

	d1, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v.ID, Type: documents.TypeXRay, Content: xray, OriginalName: "a.jpg"})
	require.NoError(t, err)

	deleted, err := f.svc.SoftDelete(ctx, d1.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)

	// idempotente
	_, err = f.svc.SoftDelete(ctx, d1.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Content(ctx, d1.ID)
	assert.ErrorIs(t, err, documents.ErrNotFound)

	// el mismo contenido entra otra vez, con un nombre nuevo
	d2, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v.ID, Type: documents.TypeXRay, Content: xray, OriginalName: "a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "010625-xray-251001-02.jpg", d2.Filename)

	list, err := f.svc.ListByVisit(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d2.ID, list[0].ID)
}

func TestUploadForPatient_UsesTodayVisitOrForcesNew(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	v1, d1, err := f.svc.UploadForPatient(ctx, f.petID, false, visits.SourceMobile, "vet-1",
		documents.RegisterInput{Type: documents.TypePrescription, Content: lab, OriginalName: "rx.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Sequence)
	assert.Equal(t, v1.ID, d1.VisitID)

	again, _, err := f.svc.UploadForPatient(ctx, f.petID, false, visits.SourceMobile, "vet-1",
		documents.RegisterInput{Type: documents.TypePhoto, Content: xray, OriginalName: "p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, v1.ID, again.ID)

	v2, d3, err := f.svc.UploadForPatient(ctx, f.petID, true, visits.SourceMobile, "vet-1",
		documents.RegisterInput{Type: documents.TypePrescription, Content: lab, OriginalName: "rx.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Sequence)
	assert.Equal(t, "010625-prescription-251001-01.pdf", d3.Filename)
}

func TestUploadForPatient_DuplicateRollsBackForcedVisit(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, _, err := f.svc.UploadForPatient(ctx, f.petID, false, visits.SourceWeb, "vet-1",
		documents.RegisterInput{Type: documents.TypeLab, Content: lab, OriginalName: "a.pdf"})
	require.NoError(t, err)

	// con force_new la visita nueva no tiene el archivo: entra
	_, _, err = f.svc.UploadForPatient(ctx, f.petID, true, visits.SourceWeb, "vet-1",
		documents.RegisterInput{Type: documents.TypeLab, Content: lab, OriginalName: "a.pdf"})
	require.NoError(t, err)

	// sin force_new cae en la visita 2, que ya lo tiene
	_, _, err = f.svc.UploadForPatient(ctx, f.petID, false, visits.SourceWeb, "vet-1",
		documents.RegisterInput{Type: documents.TypeLab, Content: lab, OriginalName: "a.pdf"})
	assert.ErrorIs(t, err, documents.ErrDuplicateArtifact)

	items, err := f.visits.ListForDay(ctx, f.petID, june1)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRegister_FilenameUsesClinicTimezone(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 31/05 20:00 UTC es 01/06 en la clínica
	f := setup(t, nil, documents.WithLocation(kolkata), documents.WithClock(func() time.Time {
		return time.Date(2025, 5, 31, 20, 0, 0, 0, time.UTC)
	}))
	v := f.openVisit(t, false)

	d, err := f.svc.Register(context.Background(), documents.RegisterInput{VisitID: v.ID, Type: documents.TypeUSG, Content: xray, OriginalName: "u.webp"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d.Filename, "010625-usg-"), d.Filename)
}

func TestRegister_SameDayVisitsKeepSeparateBlobs(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	v1 := f.openVisit(t, false)
	d1, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v1.ID, Type: documents.TypeXRay, Content: xray, OriginalName: "a.jpg"})
	require.NoError(t, err)

	v2 := f.openVisit(t, true)
	require.Equal(t, 2, v2.Sequence)
	d2, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v2.ID, Type: documents.TypeXRay, Content: lab, OriginalName: "b.jpg"})
	require.NoError(t, err)

	// mismo nombre lógico, claves distintas
	assert.Equal(t, d1.Filename, d2.Filename)
	assert.NotEqual(t, d1.StoragePath, d2.StoragePath)

	_, b1, err := f.svc.Content(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, xray, b1)

	_, b2, err := f.svc.Content(ctx, d2.ID)
	require.NoError(t, err)
	assert.Equal(t, lab, b2)
}

func TestRegister_FailedRecordKeepsOtherVisitBlob(t *testing.T) {
	boom := errors.New("insert failed")
	fail := false
	f := setup(t, func(r documents.Repository) documents.Repository {
		return toggledCreate{Repository: r, fail: &fail, err: boom}
	})
	ctx := context.Background()

	v1 := f.openVisit(t, false)
	d1, err := f.svc.Register(ctx, documents.RegisterInput{VisitID: v1.ID, Type: documents.TypeXRay, Content: xray, OriginalName: "a.jpg"})
	require.NoError(t, err)

	fail = true
	v2 := f.openVisit(t, true)
	_, err = f.svc.Register(ctx, documents.RegisterInput{VisitID: v2.ID, Type: documents.TypeXRay, Content: lab, OriginalName: "b.jpg"})
	require.ErrorIs(t, err, boom)

	_, b1, err := f.svc.Content(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, xray, b1)
	assert.Equal(t, []string{d1.StoragePath}, f.blobs.Keys())
}
