// Package retention purges attendance records older than the retention window.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
)

const (
	defaultRetentionDays = 40
	defaultBatchSize     = 300
)

type SweepResult struct {
	Cutoff  string `json:"cutoff"`
	Deleted int64  `json:"deleted"`
	Batches int    `json:"batches"`
	Failed  bool   `json:"failed"`
}

type Sweeper struct {
	repo          attendance.AttendanceRepository
	recorder      audit.Recorder
	retentionDays int
	batchSize     int
	loc           *time.Location
	now           func() time.Time
}

func NewSweeper(repo attendance.AttendanceRepository, recorder audit.Recorder, retentionDays, batchSize int, loc *time.Location) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Sweeper{
		repo:          repo,
		recorder:      recorder,
		retentionDays: retentionDays,
		batchSize:     batchSize,
		loc:           loc,
		now:           time.Now,
	}
}

// Cutoff is the first local calendar date that is kept.
func (s *Sweeper) Cutoff(now time.Time) string {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day()-s.retentionDays, 0, 0, 0, 0, s.loc).Format("2006-01-02")
}

// Sweep deletes records dated before Cutoff(now) in batches. A failing batch ends the pass;
// what was already deleted stays deleted and the next pass picks up the rest.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	result := SweepResult{Cutoff: s.Cutoff(now)}

	for {
		if err := ctx.Err(); err != nil {
			result.Failed = true
			return result, fmt.Errorf("retention sweep interrupted: %w", err)
		}

		n, err := s.repo.DeleteBefore(ctx, result.Cutoff, s.batchSize)
		if err != nil {
			result.Failed = true
			slog.Error("Retention batch failed",
				"cutoff", result.Cutoff,
				"batch", result.Batches+1,
				"deleted_so_far", result.Deleted,
				"error", err,
			)
			return result, fmt.Errorf("failed to delete attendance batch: %w", err)
		}

		result.Batches++
		result.Deleted += n
		if n < int64(s.batchSize) {
			break
		}
	}

	slog.Info("Retention sweep completed", "cutoff", result.Cutoff, "deleted", result.Deleted, "batches", result.Batches)
	return result, nil
}

// Run is the scheduled entry point.
func (s *Sweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx, s.now())
	return err
}

// Trigger runs a sweep on behalf of an administrator and audits it.
func (s *Sweeper) Trigger(ctx context.Context) (SweepResult, error) {
	result, err := s.Sweep(ctx, s.now())

	if s.recorder != nil {
		actor := audit.ActorFrom(ctx)
		entry := audit.Entry{
			ActorID: actor.ID,
			Action:  audit.ActionRetentionSweepTriggered,
			Target:  "attendances",
			Details: map[string]any{
				"cutoff":  result.Cutoff,
				"deleted": result.Deleted,
				"failed":  result.Failed,
			},
		}
		if actor.Name != "" {
			entry.ActorName = &actor.Name
		}
		s.recorder.Record(ctx, entry)
	}

	return result, err
}
