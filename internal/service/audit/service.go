package audit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
	"github.com/google/uuid"
)

const (
	defaultQueueSize = 256
	writeTimeout     = 5 * time.Second
)

// AuditServiceImpl queues entries and writes them from a single background worker.
// The caller of Record is never blocked or failed by the sink.
type AuditServiceImpl struct {
	repo  audit.AuditRepository
	queue chan audit.Entry
	done  chan struct{}
	loc   *time.Location

	mu     sync.RWMutex
	closed bool
}

func NewAuditService(repo audit.AuditRepository, queueSize int, loc *time.Location) *AuditServiceImpl {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &AuditServiceImpl{
		repo:  repo,
		queue: make(chan audit.Entry, queueSize),
		done:  make(chan struct{}),
		loc:   loc,
	}
	go s.run()
	return s
}

func logAttrs(entry audit.Entry) []any {
	return []any{
		"audit_id", entry.ID,
		"actor_id", entry.ActorID,
		"action", entry.Action,
		"target", entry.Target,
		"details", entry.Details,
	}
}

// Record implements audit.Recorder.
func (s *AuditServiceImpl) Record(ctx context.Context, entry audit.Entry) {
	if entry.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			entry.ID = id.String()
		} else {
			entry.ID = uuid.NewString()
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.ActorID == "" {
		actor := audit.ActorFrom(ctx)
		entry.ActorID = actor.ID
		if actor.Name != "" {
			entry.ActorName = &actor.Name
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		slog.Error("Audit recorder closed, entry dropped", logAttrs(entry)...)
		return
	}

	select {
	case s.queue <- entry:
	default:
		slog.Error("Audit queue full, entry dropped", logAttrs(entry)...)
	}
}

func (s *AuditServiceImpl) run() {
	defer close(s.done)

	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.repo.Append(ctx, entry); err != nil {
			slog.Error("Failed to write audit entry", append(logAttrs(entry), "error", err)...)
		}
		cancel()
	}
}

// Close stops accepting entries and waits until queued ones are written.
func (s *AuditServiceImpl) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
}

// List implements audit.AuditService.
func (s *AuditServiceImpl) List(ctx context.Context, filter audit.AuditFilter) (audit.ListAuditResponse, error) {
	if err := filter.Validate(); err != nil {
		return audit.ListAuditResponse{}, err
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return audit.ListAuditResponse{}, fmt.Errorf("failed to list audit logs: %w", err)
	}

	responses := make([]audit.EntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, audit.EntryResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			Action:    string(e.Action),
			Target:    e.Target,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.In(s.loc).Format(time.RFC3339),
		})
	}

	return audit.ListAuditResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Entries:    responses,
	}, nil
}
