package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditService struct {
	pool *pgxpool.Pool
}

// NewAuditService constructs an AuditService backed by PostgreSQL.
func NewAuditService(pool *pgxpool.Pool) AuditService {
	return &auditService{pool: pool}
}

// Append writes one immutable audit entry. The entry ID is generated here
// when the caller leaves it empty.
func (s *auditService) Append(ctx context.Context, entry AuditEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, company_id, entity, entity_id, action, detail, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, entry.CompanyID, entry.Entity, entry.EntityID, entry.Action, entry.Detail, entry.Actor,
	); err != nil {
		return fmt.Errorf("append audit entry for %s/%d: %w", entry.Entity, entry.EntityID, err)
	}
	return nil
}

// List returns audit entries for a company, newest first.
func (s *auditService) List(ctx context.Context, companyID int, entity string, limit, offset int) ([]AuditEntry, error) {
	query := `
		SELECT id, company_id, entity, entity_id, action, detail, actor, created_at
		FROM audit_log
		WHERE company_id = $1`
	args := []any{companyID}

	if entity != "" {
		query += fmt.Sprintf(" AND entity = $%d", len(args)+1)
		args = append(args, entity)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Entity, &e.EntityID,
			&e.Action, &e.Detail, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
