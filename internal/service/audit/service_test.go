package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WritesQueuedEntriesOnClose(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewAuditService(repo, 16, time.UTC)

	ctx := audit.WithActor(context.Background(), audit.Actor{ID: "admin-1", Name: "Principal"})
	for i := 0; i < 5; i++ {
		svc.Record(ctx, audit.Entry{Action: audit.ActionGeofenceUpdated, Target: "geofence"})
	}
	svc.Close()

	list, err := svc.List(context.Background(), audit.AuditFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, list.TotalCount)
	for _, e := range list.Entries {
		assert.Equal(t, "admin-1", e.ActorID)
		require.NotNil(t, e.ActorName)
		assert.Equal(t, "Principal", *e.ActorName)
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.CreatedAt)
	}
}

func TestRecorder_DefaultsToSystemActor(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewAuditService(repo, 4, time.UTC)
	svc.Record(context.Background(), audit.Entry{Action: audit.ActionRetentionSweepTriggered, Target: "attendances"})
	svc.Close()

	entries, _, err := repo.List(context.Background(), audit.AuditFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].ActorID)
}

type failingRepo struct {
	mu    sync.Mutex
	calls int
}

func (f *failingRepo) Append(ctx context.Context, entry audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func (f *failingRepo) List(ctx context.Context, filter audit.AuditFilter) ([]audit.Entry, int64, error) {
	return nil, 0, nil
}

func TestRecorder_SinkFailureDoesNotReachCaller(t *testing.T) {
	repo := &failingRepo{}
	svc := NewAuditService(repo, 4, time.UTC)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), audit.Entry{Action: audit.ActionCalendarExceptionCreated, Target: "2025-01-26"})
	})
	svc.Close()

	assert.Equal(t, 1, repo.calls)
}

type blockingRepo struct {
	release chan struct{}
	memory  audit.AuditRepository
}

func (b *blockingRepo) Append(ctx context.Context, entry audit.Entry) error {
	<-b.release
	return b.memory.Append(ctx, entry)
}

func (b *blockingRepo) List(ctx context.Context, filter audit.AuditFilter) ([]audit.Entry, int64, error) {
	return b.memory.List(ctx, filter)
}

func TestRecorder_FullQueueNeverBlocks(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{}), memory: memory.NewAuditRepository()}
	svc := NewAuditService(repo, 1, time.UTC)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			svc.Record(context.Background(), audit.Entry{Action: audit.ActionGeofenceUpdated, Target: "geofence"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(repo.release)
	svc.Close()

	// Record after Close is dropped, not a panic.
	assert.NotPanics(t, func() {
		svc.Record(context.Background(), audit.Entry{Action: audit.ActionGeofenceUpdated, Target: "geofence"})
	})
}
