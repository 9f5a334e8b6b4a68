package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/schedule"
	"github.com/google/uuid"
)

// SnapshotReader loads the settings in force on a date.
type SnapshotReader interface {
	Snapshot(ctx context.Context, date string) (settings.Snapshot, error)
}

// Sweeper is the retention pass run on a schedule.
type Sweeper interface {
	Run(ctx context.Context) error
}

type AttendanceJobs struct {
	attendanceRepo attendance.AttendanceRepository
	userRepo       user.UserRepository
	snapshots      SnapshotReader
	sweeper        Sweeper
	restDays       map[settings.Weekday]bool
	loc            *time.Location
	now            func() time.Time
}

func NewAttendanceJobs(
	attendanceRepo attendance.AttendanceRepository,
	userRepo user.UserRepository,
	snapshots SnapshotReader,
	sweeper Sweeper,
	restDays map[settings.Weekday]bool,
	loc *time.Location,
) *AttendanceJobs {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceJobs{
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		snapshots:      snapshots,
		sweeper:        sweeper,
		restDays:       restDays,
		loc:            loc,
		now:            time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, sweepInterval time.Duration) {
	scheduler.AddJob("attendance_retention_sweep", sweepInterval, j.sweeper.Run)
	// Hourly so a missed midnight is caught up; inserts skip existing records.
	scheduler.AddJob("mark_absent_users", 1*time.Hour, j.MarkAbsentUsers)
}

// MarkAbsentUsers writes an Absent record for yesterday, in the institution timezone, for every active
// user without a record, unless yesterday admitted no attendance at all.
func (j *AttendanceJobs) MarkAbsentUsers(ctx context.Context) error {
	yesterday := j.now().In(j.loc).AddDate(0, 0, -1)
	date := yesterday.Format("2006-01-02")

	snap, err := j.snapshots.Snapshot(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to load settings for %s: %w", date, err)
	}

	res := schedule.Resolve(schedule.ResolveInput{
		Day:       settings.WeekdayOf(yesterday),
		Exception: snap.Exception,
		Timetable: snap.Timetable,
		RestDays:  j.restDays,
	})
	if res.Blocked {
		slog.Debug("Cron: No attendance expected, skipping absent marking", "date", date, "reason", res.Reason)
		return nil
	}

	users, err := j.userRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active users: %w", err)
	}

	absences := make([]attendance.Attendance, 0, len(users))
	for _, u := range users {
		name := u.Name
		absences = append(absences, attendance.Attendance{
			ID:       uuid.Must(uuid.NewV7()).String(),
			UserID:   u.ID,
			UserName: &name,
			Date:     date,
			Status:   attendance.StatusAbsent,
		})
	}

	inserted, err := j.attendanceRepo.BulkCreateAbsences(ctx, absences)
	if err != nil {
		return fmt.Errorf("failed to bulk create absences: %w", err)
	}

	if inserted > 0 {
		slog.Info("Cron: Marked absent users", "date", date, "count", inserted)
	}
	return nil
}
