package postgres

import (
	"context"
	"database/sql"

	"vet-clinic-records/internal/domain/duplicates"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Append es el único write sobre duplicate_audit_log.
func (r *AuditRepo) Append(ctx context.Context, e duplicates.AuditEntry) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO duplicate_audit_log (id, action, source_uid, target_uid, actor_id, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		e.ID,
		e.Action,
		e.SourceUID,
		toNullString(e.TargetUID),
		e.ActorID,
		e.Reason,
		e.CreatedAt,
	)
	return translate(err)
}

func (r *AuditRepo) ListByUIDs(ctx context.Context, uids []string) ([]duplicates.AuditEntry, error) {
	if len(uids) == 0 {
		return []duplicates.AuditEntry{}, nil
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, action, source_uid, target_uid, actor_id, reason, created_at
		FROM duplicate_audit_log
		WHERE source_uid = ANY($1) OR target_uid = ANY($1)
		ORDER BY created_at DESC, id DESC
	`, uids)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]duplicates.AuditEntry, 0)
	for rows.Next() {
		var (
			e      duplicates.AuditEntry
			target sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.SourceUID, &target, &e.ActorID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TargetUID = target.String
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ duplicates.AuditRepository = (*AuditRepo)(nil)
