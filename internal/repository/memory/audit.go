package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
)

type auditRepositoryImpl struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAuditRepository() audit.AuditRepository {
	return &auditRepositoryImpl{}
}

// Append implements audit.AuditRepository.
func (r *auditRepositoryImpl) Append(ctx context.Context, entry audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

// List implements audit.AuditRepository.
func (r *auditRepositoryImpl) List(ctx context.Context, filter audit.AuditFilter) ([]audit.Entry, int64, error) {
	r.mu.RLock()
	var matched []audit.Entry
	for _, e := range r.entries {
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != nil && string(e.Action) != *filter.Action {
			continue
		}
		day := e.CreatedAt.Format("2006-01-02")
		if filter.StartDate != nil && day < *filter.StartDate {
			continue
		}
		if filter.EndDate != nil && day > *filter.EndDate {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return []audit.Entry{}, total, nil
	}
	return matched[offset:min(offset+filter.Limit, len(matched))], total, nil
}
