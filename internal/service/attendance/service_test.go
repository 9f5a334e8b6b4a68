package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/utils"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/memory"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/schedule"
	settingsservice "github.com/cmlabs-hris/geofence-attendance/internal/service/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	centerLat = 19.0760
	centerLng = 72.8777
	monday    = "2025-01-06"
	sunday    = "2025-01-12"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to date at HH:MM:SS local time.
func (c *fakeClock) Set(t *testing.T, date, clock string) {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, ist)
	require.NoError(t, err)
	c.mu.Lock()
	c.t = v
	c.mu.Unlock()
}

type fixture struct {
	svc      attendance.AttendanceService
	repo     attendance.AttendanceRepository
	settings settings.SettingsRepository
	clock    *fakeClock
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	ctx := context.Background()

	settingsRepo := memory.NewSettingsRepository()
	_, err := settingsRepo.UpsertGeofence(ctx, settings.GeofenceConfig{
		CenterLatitude:  centerLat,
		CenterLongitude: centerLng,
		RadiusMeters:    150,
	})
	require.NoError(t, err)

	for _, day := range settings.WeekdayValues {
		req := settings.UpsertScheduleEntryRequest{Day: day, WorkStart: "09:00", LateThreshold: "09:15", WorkEnd: "17:00"}
		entry, err := req.ToEntry()
		require.NoError(t, err)
		_, err = settingsRepo.UpsertScheduleEntry(ctx, entry)
		require.NoError(t, err)
	}

	if policy.RestDays == nil {
		policy.RestDays = schedule.RestDaySet([]string{"sunday"})
	}

	repo := memory.NewAttendanceRepository()
	clock := &fakeClock{}
	svc := NewAttendanceService(repo, settingsservice.NewSettingsService(settingsRepo, nil, ist), policy, ist, clock.Now)

	return &fixture{svc: svc, repo: repo, settings: settingsRepo, clock: clock}
}

func defaultPolicy() Policy {
	return Policy{EnforceWorkWindow: true}
}

// at returns a coordinate meters due north of the fence center.
func at(meters float64) (float64, float64) {
	return utils.OffsetNorth(centerLat, meters), centerLng
}

func checkIn(f *fixture, userID, deviceID string, meters float64) (attendance.AttendanceResponse, error) {
	lat, lng := at(meters)
	return f.svc.CheckIn(context.Background(), attendance.CheckInRequest{UserID: userID, DeviceID: deviceID, Latitude: lat, Longitude: lng})
}

func checkOut(f *fixture, userID, deviceID string, meters float64) (attendance.AttendanceResponse, error) {
	lat, lng := at(meters)
	return f.svc.CheckOut(context.Background(), attendance.CheckOutRequest{UserID: userID, DeviceID: deviceID, Latitude: lat, Longitude: lng})
}

func TestCheckIn_LateScenarioThenDeviceMismatch(t *testing.T) {
	f := newFixture(t, defaultPolicy())

	f.clock.Set(t, monday, "09:20:00")
	resp, err := checkIn(f, "teacher-1", "device-a", 120)
	require.NoError(t, err)
	assert.Equal(t, "Late", resp.Status)
	assert.Equal(t, 5, resp.LateMinutes)
	assert.Equal(t, monday, resp.Date)
	require.NotNil(t, resp.CheckInLocation)
	assert.InDelta(t, 120, resp.CheckInLocation.DistanceMeters, 0.01)

	before, err := f.repo.GetByUserAndDate(context.Background(), "teacher-1", monday)
	require.NoError(t, err)

	f.clock.Set(t, monday, "17:05:00")
	_, err = checkOut(f, "teacher-1", "device-b", 10)
	assert.ErrorIs(t, err, attendance.ErrDeviceMismatch)

	after, err := f.repo.GetByUserAndDate(context.Background(), "teacher-1", monday)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a rejected check-out must not mutate the record")
}

func TestCheckIn_LatenessThreshold(t *testing.T) {
	tests := []struct {
		clock       string
		status      string
		lateMinutes int
	}{
		{"09:00:00", "Present", 0},
		{"09:15:00", "Present", 0},
		{"09:15:59", "Present", 0},
		{"09:16:00", "Late", 1},
		{"10:15:30", "Late", 60},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			f := newFixture(t, defaultPolicy())
			f.clock.Set(t, monday, tt.clock)

			resp, err := checkIn(f, "teacher-1", "device-a", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.lateMinutes, resp.LateMinutes)
		})
	}
}

func TestCheckIn_LateReasonKeptOnlyWhenLate(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	reason := "Bus breakdown"
	lat, lng := at(0)

	f.clock.Set(t, monday, "09:05:00")
	resp, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{UserID: "on-time", DeviceID: "d", Latitude: lat, Longitude: lng, LateReason: &reason})
	require.NoError(t, err)
	assert.Nil(t, resp.LateReason)

	f.clock.Set(t, monday, "09:30:00")
	resp, err = f.svc.CheckIn(context.Background(), attendance.CheckInRequest{UserID: "late", DeviceID: "d", Latitude: lat, Longitude: lng, LateReason: &reason})
	require.NoError(t, err)
	require.NotNil(t, resp.LateReason)
	assert.Equal(t, reason, *resp.LateReason)
}

func TestCheckIn_HolidayBlocksEvenInsideFenceAndSchedule(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	_, err := f.settings.CreateException(context.Background(), settings.CalendarException{
		Date: monday, Kind: settings.ExceptionHoliday, Name: "Founders' Day",
	})
	require.NoError(t, err)

	f.clock.Set(t, monday, "09:05:00")
	_, err = checkIn(f, "teacher-1", "device-a", 0)

	reason, ok := attendance.IsAdmissionBlocked(err)
	require.True(t, ok, "expected AdmissionBlocked, got %v", err)
	assert.Equal(t, attendance.ReasonHoliday, reason)

	rec, err := f.repo.GetByUserAndDate(context.Background(), "teacher-1", monday)
	require.NoError(t, err)
	assert.Nil(t, rec, "nothing may be written on a blocked day")
}

func TestCheckIn_RestDayAndSpecialWorkingDay(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.clock.Set(t, sunday, "09:05:00")

	_, err := checkIn(f, "teacher-1", "device-a", 0)
	reason, ok := attendance.IsAdmissionBlocked(err)
	require.True(t, ok)
	assert.Equal(t, attendance.ReasonNonWorkingDay, reason)

	_, err = f.settings.CreateException(context.Background(), settings.CalendarException{
		Date: sunday, Kind: settings.ExceptionSpecialWorkingDay, Name: "Make-up day",
	})
	require.NoError(t, err)

	resp, err := checkIn(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)
	assert.Equal(t, "Present", resp.Status)
}

func TestCheckIn_ScheduleMissing(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	require.NoError(t, f.settings.DeleteScheduleEntry(context.Background(), settings.Monday))

	f.clock.Set(t, monday, "09:05:00")
	_, err := checkIn(f, "teacher-1", "device-a", 0)
	reason, ok := attendance.IsAdmissionBlocked(err)
	require.True(t, ok)
	assert.Equal(t, attendance.ReasonScheduleMissing, reason)
}

func TestCheckIn_WorkWindowPolicy(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.clock.Set(t, monday, "08:30:00")

	_, err := checkIn(f, "teacher-1", "device-a", 0)
	reason, ok := attendance.IsAdmissionBlocked(err)
	require.True(t, ok)
	assert.Equal(t, attendance.ReasonOutsideWorkingHours, reason)

	f.clock.Set(t, monday, "17:01:00")
	_, err = checkIn(f, "teacher-1", "device-a", 0)
	reason, ok = attendance.IsAdmissionBlocked(err)
	require.True(t, ok)
	assert.Equal(t, attendance.ReasonOutsideWorkingHours, reason)

	lenient := newFixture(t, Policy{EnforceWorkWindow: false})
	lenient.clock.Set(t, monday, "08:30:00")
	resp, err := checkIn(lenient, "teacher-1", "device-a", 0)
	require.NoError(t, err)
	assert.Equal(t, "Present", resp.Status)
}

func TestCheckIn_OutOfRange(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.clock.Set(t, monday, "09:05:00")

	_, err := checkIn(f, "teacher-1", "device-a", 150.5)
	var oor *attendance.OutOfRangeError
	require.True(t, errors.As(err, &oor), "expected OutOfRange, got %v", err)
	assert.InDelta(t, 150.5, oor.DistanceMeters, 0.01)

	_, err = checkIn(f, "teacher-1", "device-a", 149.5)
	assert.NoError(t, err)
}

func TestCheckIn_ConfigurationMissing(t *testing.T) {
	ctx := context.Background()
	settingsRepo := memory.NewSettingsRepository()
	entry, err := (&settings.UpsertScheduleEntryRequest{Day: "monday", WorkStart: "09:00", LateThreshold: "09:15", WorkEnd: "17:00"}).ToEntry()
	require.NoError(t, err)
	_, err = settingsRepo.UpsertScheduleEntry(ctx, entry)
	require.NoError(t, err)

	clock := &fakeClock{}
	clock.Set(t, monday, "09:05:00")
	repo := memory.NewAttendanceRepository()
	svc := NewAttendanceService(repo, settingsservice.NewSettingsService(settingsRepo, nil, ist), defaultPolicy(), ist, clock.Now)

	lat, lng := at(0)
	_, err = svc.CheckIn(ctx, attendance.CheckInRequest{UserID: "teacher-1", DeviceID: "device-a", Latitude: lat, Longitude: lng})
	assert.ErrorIs(t, err, attendance.ErrConfigurationMissing)

	rec, err := repo.GetByUserAndDate(ctx, "teacher-1", monday)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCheckIn_Validation(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.clock.Set(t, monday, "09:05:00")

	_, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{UserID: "teacher-1", DeviceID: "  ", Latitude: 95, Longitude: 0})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "device_id")
	assert.Contains(t, verrs.ToMap(), "latitude")
}

func TestCheckIn_ConcurrentRequestsYieldExactlyOneRecord(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.clock.Set(t, monday, "09:10:00")

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := checkIn(f, "teacher-1", "device-a", 20)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, attendance.ErrAlreadyCheckedIn):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	list, total, err := f.repo.ListByUser(context.Background(), "teacher-1", attendance.HistoryFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestCheckOut_Sequence(t *testing.T) {
	f := newFixture(t, defaultPolicy())

	f.clock.Set(t, monday, "16:00:00")
	_, err := checkOut(f, "teacher-1", "device-a", 0)
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)

	f.clock.Set(t, monday, "09:00:00")
	in, err := checkIn(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)

	f.clock.Set(t, monday, "17:05:00")
	out, err := checkOut(f, "teacher-1", "device-a", 30)
	require.NoError(t, err)
	require.NotNil(t, out.CheckOutTime)
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.LateMinutes, out.LateMinutes)
	require.NotNil(t, out.WorkingHours)
	assert.InDelta(t, 8.08, *out.WorkingHours, 0.01)

	_, err = checkOut(f, "teacher-1", "device-a", 30)
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)

	// A closed day never reopens.
	f.clock.Set(t, monday, "17:00:00")
	_, err = checkIn(f, "teacher-1", "device-a", 0)
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)

	rec, err := f.repo.GetByUserAndDate(context.Background(), "teacher-1", monday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateCheckedOut, rec.State())
}

func TestCheckOut_DeviceMismatchTakesPrecedenceOverAlreadyCheckedOut(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.clock.Set(t, monday, "09:00:00")
	_, err := checkIn(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)

	f.clock.Set(t, monday, "17:00:00")
	_, err = checkOut(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)

	_, err = checkOut(f, "teacher-1", "device-b", 0)
	assert.ErrorIs(t, err, attendance.ErrDeviceMismatch)
}

func TestCheckOut_FencePolicy(t *testing.T) {
	permissive := newFixture(t, defaultPolicy())
	permissive.clock.Set(t, monday, "09:00:00")
	_, err := checkIn(permissive, "teacher-1", "device-a", 0)
	require.NoError(t, err)

	permissive.clock.Set(t, monday, "17:00:00")
	out, err := checkOut(permissive, "teacher-1", "device-a", 2000)
	require.NoError(t, err, "check-out is not gated by default")
	require.NotNil(t, out.CheckOutLocation)
	assert.InDelta(t, 2000, out.CheckOutLocation.DistanceMeters, 0.01)

	strict := newFixture(t, Policy{EnforceWorkWindow: true, CheckOutRequiresFence: true})
	strict.clock.Set(t, monday, "09:00:00")
	_, err = checkIn(strict, "teacher-1", "device-a", 0)
	require.NoError(t, err)

	strict.clock.Set(t, monday, "17:00:00")
	_, err = checkOut(strict, "teacher-1", "device-a", 2000)
	var oor *attendance.OutOfRangeError
	require.True(t, errors.As(err, &oor))

	rec, err := strict.repo.GetByUserAndDate(context.Background(), "teacher-1", monday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateCheckedIn, rec.State())
}

func TestCheckOut_ConcurrentRequestsCloseOnce(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.clock.Set(t, monday, "09:00:00")
	_, err := checkIn(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)
	f.clock.Set(t, monday, "17:00:00")

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := checkOut(f, "teacher-1", "device-a", 0)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, attendance.ErrAlreadyCheckedOut) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func TestAbsentRecord_CountsAsNoCheckIn(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()

	n, err := f.repo.BulkCreateAbsences(ctx, []attendance.Attendance{{ID: "absent-1", UserID: "teacher-1", Date: monday}})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	f.clock.Set(t, monday, "12:00:00")
	_, err = checkOut(f, "teacher-1", "device-a", 0)
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)

	resp, err := checkIn(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)
	assert.Equal(t, "Late", resp.Status)
	assert.Equal(t, "absent-1", resp.ID, "the placeholder is upgraded in place")
}

func TestToday(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()

	f.clock.Set(t, monday, "09:20:00")
	today, err := f.svc.Today(ctx, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, monday, today.Date)
	assert.Equal(t, "no_record", today.State)
	assert.True(t, today.CanCheckIn)
	assert.False(t, today.CanCheckOut)
	assert.Equal(t, "09:15", today.LateThreshold)
	assert.Nil(t, today.TodayAttendance)

	_, err = checkIn(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)

	today, err = f.svc.Today(ctx, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "checked_in", today.State)
	assert.False(t, today.CanCheckIn)
	assert.True(t, today.CanCheckOut)
	require.NotNil(t, today.TodayAttendance)

	f.clock.Set(t, sunday, "10:00:00")
	today, err = f.svc.Today(ctx, "teacher-1")
	require.NoError(t, err)
	assert.True(t, today.Blocked)
	assert.Equal(t, "NonWorkingDay", today.BlockReason)
	assert.False(t, today.CanCheckIn)
}

func TestHistory_DefaultPageSize(t *testing.T) {
	f := newFixture(t, Policy{EnforceWorkWindow: true, RestDays: map[settings.Weekday]bool{}})
	ctx := context.Background()

	day, err := time.ParseInLocation("2006-01-02", "2024-11-01", ist)
	require.NoError(t, err)
	for i := 0; i < 45; i++ {
		f.clock.Set(t, day.AddDate(0, 0, i).Format("2006-01-02"), "09:00:00")
		_, err := checkIn(f, "teacher-1", "device-a", 0)
		require.NoError(t, err)
	}

	page, err := f.svc.History(ctx, "teacher-1", attendance.HistoryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 45, page.TotalCount)
	assert.Equal(t, 40, page.Limit)
	assert.Len(t, page.Attendances, 40)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "2024-12-15", page.Attendances[0].Date, "newest first")

	page, err = f.svc.History(ctx, "teacher-1", attendance.HistoryFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Attendances, 5)
	assert.Equal(t, "41-45 of 45", page.Showing)
}

func TestListAttendance_Filters(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()

	f.clock.Set(t, monday, "09:05:00")
	_, err := checkIn(f, "teacher-1", "device-a", 0)
	require.NoError(t, err)
	f.clock.Set(t, monday, "09:40:00")
	_, err = checkIn(f, "teacher-2", "device-b", 0)
	require.NoError(t, err)

	late := "Late"
	list, err := f.svc.ListAttendance(ctx, attendance.AttendanceFilter{Status: &late})
	require.NoError(t, err)
	require.Len(t, list.Attendances, 1)
	assert.Equal(t, "teacher-2", list.Attendances[0].UserID)

	bad := "Sleeping"
	_, err = f.svc.ListAttendance(ctx, attendance.AttendanceFilter{Status: &bad})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

type unavailableRepo struct {
	attendance.AttendanceRepository
}

func (unavailableRepo) InsertCheckIn(ctx context.Context, record attendance.Attendance) (attendance.Attendance, bool, error) {
	return attendance.Attendance{}, false, attendance.ErrStorageUnavailable
}

func TestCheckIn_StorageUnavailableIsSurfaced(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	svc := NewAttendanceService(unavailableRepo{f.repo}, settingsservice.NewSettingsService(f.settings, nil, ist), defaultPolicy(), ist, f.clock.Now)
	f.clock.Set(t, monday, "09:05:00")

	lat, lng := at(0)
	_, err := svc.CheckIn(context.Background(), attendance.CheckInRequest{UserID: "teacher-1", DeviceID: "device-a", Latitude: lat, Longitude: lng})
	assert.ErrorIs(t, err, attendance.ErrStorageUnavailable)
}
