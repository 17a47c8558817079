package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vet-clinic-records/internal/domain/documents"
)

const documentColumns = `
	id, visit_id, pet_id, patient_uid,
	type, filename, original_name, storage_path,
	content_type, size_bytes, note, checksum,
	captured_at, created_at, deleted_at`

type DocumentsRepo struct {
	db *sql.DB
}

func NewDocumentsRepo(db *sql.DB) *DocumentsRepo {
	return &DocumentsRepo{db: db}
}

// Create: las dos restricciones únicas (filename y checksum vivo) devuelven ErrDuplicateArtifact.
func (r *DocumentsRepo) Create(ctx context.Context, d documents.Document) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		d.ID,
		d.VisitID,
		d.PetID,
		d.PatientUID,
		d.Type,
		d.Filename,
		d.OriginalName,
		d.StoragePath,
		d.ContentType,
		d.SizeBytes,
		d.Note,
		d.Checksum,
		d.CapturedAt,
		d.CreatedAt,
		toNullTime(d.DeletedAt),
	)
	if isUniqueViolation(err) {
		return documents.ErrDuplicateArtifact
	}
	return translate(err)
}

func (r *DocumentsRepo) GetByID(ctx context.Context, id string) (documents.Document, error) {
	d, err := scanDocument(conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return documents.Document{}, documents.ErrNotFound
	}
	if err != nil {
		return documents.Document{}, translate(err)
	}
	return d, nil
}

func (r *DocumentsRepo) CountByType(ctx context.Context, visitID string, t documents.Type) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT count(*) FROM documents WHERE visit_id = $1 AND type = $2
	`, visitID, t).Scan(&n)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (r *DocumentsRepo) FindDuplicate(ctx context.Context, visitID, filename, checksum string) (documents.Document, bool, error) {
	d, err := scanDocument(conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE visit_id = $1
		  AND (filename = $2 OR (checksum = $3 AND deleted_at IS NULL))
		ORDER BY created_at ASC
		LIMIT 1
	`, visitID, filename, checksum))
	if errors.Is(err, sql.ErrNoRows) {
		return documents.Document{}, false, nil
	}
	if err != nil {
		return documents.Document{}, false, translate(err)
	}
	return d, true, nil
}

func (r *DocumentsRepo) ListByVisit(ctx context.Context, visitID string) ([]documents.Document, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE visit_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, filename ASC
	`, visitID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]documents.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DocumentsRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE documents SET deleted_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return translate(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return documents.ErrNotFound
	}
	return nil
}

func scanDocument(s scanner) (documents.Document, error) {
	var (
		d       documents.Document
		deleted sql.NullTime
	)
	if err := s.Scan(
		&d.ID,
		&d.VisitID,
		&d.PetID,
		&d.PatientUID,
		&d.Type,
		&d.Filename,
		&d.OriginalName,
		&d.StoragePath,
		&d.ContentType,
		&d.SizeBytes,
		&d.Note,
		&d.Checksum,
		&d.CapturedAt,
		&d.CreatedAt,
		&deleted,
	); err != nil {
		return documents.Document{}, err
	}
	if deleted.Valid {
		t := deleted.Time
		d.DeletedAt = &t
	}
	return d, nil
}

var _ documents.Repository = (*DocumentsRepo)(nil)
