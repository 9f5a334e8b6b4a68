package audit

import "context"

type AuditRepository interface {
	Append(ctx context.Context, entry Entry) error
	// List returns entries newest first with the total match count
	List(ctx context.Context, filter AuditFilter) ([]Entry, int64, error)
}
