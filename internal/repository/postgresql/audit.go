package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/database"
)

type auditRepository struct {
	db *database.DB
}

// Append implements audit.AuditRepository.
func (r *auditRepository) Append(ctx context.Context, entry audit.Entry) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO audit_logs (id, actor_id, actor_name, action, target, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := q.Exec(ctx, query, entry.ID, entry.ActorID, entry.ActorName, string(entry.Action), entry.Target, entry.Details, entry.CreatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to append audit entry: %w", err))
	}

	return nil
}

// List implements audit.AuditRepository.
func (r *auditRepository) List(ctx context.Context, filter audit.AuditFilter) ([]audit.Entry, int64, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	if filter.ActorID != nil && *filter.ActorID != "" {
		baseWhere += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, *filter.ActorID)
		argIdx++
	}
	if filter.Action != nil && *filter.Action != "" {
		baseWhere += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, *filter.Action)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND created_at >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND created_at < ($%d::date + 1)", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE `+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("failed to count audit logs: %w", err))
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, actor_id, actor_name, action, target, details, created_at
		FROM audit_logs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to query audit logs: %w", err))
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0)
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &e.Action, &e.Target, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, classify(fmt.Errorf("failed to scan audit entry: %w", err))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(fmt.Errorf("failed to iterate audit logs: %w", err))
	}

	return entries, total, nil
}

func NewAuditRepository(db *database.DB) audit.AuditRepository {
	return &auditRepository{db: db}
}
