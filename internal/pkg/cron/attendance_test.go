package cron

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/memory"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/schedule"
	settingsservice "github.com/cmlabs-hris/geofence-attendance/internal/service/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type absentFixture struct {
	jobs        *AttendanceJobs
	attendances attendance.AttendanceRepository
	settings    settings.SettingsRepository
}

func newAbsentFixture(t *testing.T, now time.Time) *absentFixture {
	t.Helper()

	attendances := memory.NewAttendanceRepository()
	settingsRepo := memory.NewSettingsRepository()
	users := memory.NewUserRepository(
		user.User{ID: "u-1", Name: "Asha", Role: user.RoleTeacher, IsActive: true},
		user.User{ID: "u-2", Name: "Ravi", Role: user.RoleTeacher, IsActive: true},
		user.User{ID: "u-3", Name: "Former", Role: user.RoleTeacher, IsActive: false},
	)

	for _, day := range []settings.Weekday{settings.Monday, settings.Tuesday, settings.Saturday} {
		_, err := settingsRepo.UpsertScheduleEntry(context.Background(), settings.ScheduleEntry{
			Day: day, WorkStart: 9 * 60, LateThreshold: 9*60 + 15, WorkEnd: 17 * 60,
		})
		require.NoError(t, err)
	}

	jobs := NewAttendanceJobs(
		attendances,
		users,
		settingsservice.NewSettingsService(settingsRepo, nil, time.UTC),
		nil,
		schedule.RestDaySet([]string{"sunday"}),
		time.UTC,
	)
	jobs.now = func() time.Time { return now }

	return &absentFixture{jobs: jobs, attendances: attendances, settings: settingsRepo}
}

func TestMarkAbsentUsers(t *testing.T) {
	ctx := context.Background()
	// Tuesday 2025-01-07 00:30 UTC, so yesterday is Monday 2025-01-06.
	f := newAbsentFixture(t, time.Date(2025, 1, 7, 0, 30, 0, 0, time.UTC))

	checkIn := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	device := "dev"
	_, applied, err := f.attendances.InsertCheckIn(ctx, attendance.Attendance{
		ID: "present", UserID: "u-1", Date: "2025-01-06", Status: attendance.StatusPresent,
		CheckInTime: &checkIn, DeviceID: &device,
	})
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, f.jobs.MarkAbsentUsers(ctx))

	present, err := f.attendances.GetByUserAndDate(ctx, "u-1", "2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, present.Status)

	absent, err := f.attendances.GetByUserAndDate(ctx, "u-2", "2025-01-06")
	require.NoError(t, err)
	require.NotNil(t, absent)
	assert.Equal(t, attendance.StatusAbsent, absent.Status)
	assert.Nil(t, absent.CheckInTime)
	assert.Equal(t, attendance.StateNoRecord, absent.State())

	inactive, err := f.attendances.GetByUserAndDate(ctx, "u-3", "2025-01-06")
	require.NoError(t, err)
	assert.Nil(t, inactive)

	// A second run inserts nothing new.
	require.NoError(t, f.jobs.MarkAbsentUsers(ctx))
	_, total, err := f.attendances.List(ctx, attendance.AttendanceFilter{Page: 1, Limit: 20, SortBy: "date", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestMarkAbsentUsers_SkipsDaysWithoutAttendance(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		now   time.Time
		setup func(t *testing.T, f *absentFixture)
	}{
		{
			name: "rest day",
			// Monday 2025-01-13, yesterday Sunday
			now: time.Date(2025, 1, 13, 1, 0, 0, 0, time.UTC),
		},
		{
			name: "no timetable entry",
			// Thursday 2025-01-09, yesterday Wednesday
			now: time.Date(2025, 1, 9, 1, 0, 0, 0, time.UTC),
		},
		{
			name: "holiday",
			now:  time.Date(2025, 1, 7, 1, 0, 0, 0, time.UTC),
			setup: func(t *testing.T, f *absentFixture) {
				_, err := f.settings.CreateException(ctx, settings.CalendarException{
					Date: "2025-01-06", Kind: settings.ExceptionHoliday, Name: "Founders Day",
				})
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAbsentFixture(t, tt.now)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			require.NoError(t, f.jobs.MarkAbsentUsers(ctx))

			_, total, err := f.attendances.List(ctx, attendance.AttendanceFilter{Page: 1, Limit: 20, SortBy: "date", SortOrder: "desc"})
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestMarkAbsentUsers_SpecialWorkingDayOnRestDay(t *testing.T) {
	ctx := context.Background()
	// Monday 2025-01-13, yesterday Sunday 2025-01-12 made a working day.
	f := newAbsentFixture(t, time.Date(2025, 1, 13, 1, 0, 0, 0, time.UTC))
	_, err := f.settings.UpsertScheduleEntry(ctx, settings.ScheduleEntry{
		Day: settings.Sunday, WorkStart: 9 * 60, LateThreshold: 9*60 + 15, WorkEnd: 13 * 60,
	})
	require.NoError(t, err)
	_, err = f.settings.CreateException(ctx, settings.CalendarException{
		Date: "2025-01-12", Kind: settings.ExceptionSpecialWorkingDay, Name: "Make-up day",
	})
	require.NoError(t, err)

	require.NoError(t, f.jobs.MarkAbsentUsers(ctx))

	absent, err := f.attendances.GetByUserAndDate(ctx, "u-1", "2025-01-12")
	require.NoError(t, err)
	require.NotNil(t, absent)
	assert.Equal(t, attendance.StatusAbsent, absent.Status)
}
