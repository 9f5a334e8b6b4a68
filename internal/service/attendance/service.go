package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/geofence"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/schedule"
	"github.com/google/uuid"
)

// SnapshotReader supplies the configuration a single decision is evaluated against.
type SnapshotReader interface {
	Snapshot(ctx context.Context, date string) (settings.Snapshot, error)
}

// Policy holds the institution-wide rules that are not part of the stored settings.
type Policy struct {
	RestDays map[settings.Weekday]bool
	// EnforceWorkWindow rejects check-ins before workStart or after workEnd
	EnforceWorkWindow bool
	// CheckOutRequiresFence rejects check-outs from outside the geofence. When false the
	// location is evaluated and stored but never gates.
	CheckOutRequiresFence bool
}

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	snapshots SnapshotReader
	policy    Policy
	loc       *time.Location
	now       func() time.Time
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	snapshots SnapshotReader,
	policy Policy,
	loc *time.Location,
	clock func() time.Time,
) attendance.AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		snapshots:            snapshots,
		policy:               policy,
		loc:                  loc,
		now:                  clock,
	}
}

// localNow is the only source of dates and times for attendance decisions.
func (a *AttendanceServiceImpl) localNow() (time.Time, string) {
	now := a.now().In(a.loc)
	return now, now.Format("2006-01-02")
}

func (a *AttendanceServiceImpl) resolve(now time.Time, snap settings.Snapshot) schedule.Resolution {
	return schedule.Resolve(schedule.ResolveInput{
		Day:       settings.WeekdayOf(now),
		TimeOfDay: settings.TimeOfDayOf(now),
		Exception: snap.Exception,
		Timetable: snap.Timetable,
		RestDays:  a.policy.RestDays,
	})
}

// admit returns the admission error for a check-in, if any.
func (a *AttendanceServiceImpl) admit(res schedule.Resolution) error {
	if res.Blocked {
		return &attendance.AdmissionBlockedError{Reason: res.Reason}
	}
	if a.policy.EnforceWorkWindow && !res.WithinWorkWindow {
		return &attendance.AdmissionBlockedError{Reason: attendance.ReasonOutsideWorkingHours}
	}
	return nil
}

// CheckIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	now, date := a.localNow()

	snap, err := a.snapshots.Snapshot(ctx, date)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to load attendance settings: %w", err)
	}

	res := a.resolve(now, snap)
	if err := a.admit(res); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	point := geofence.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	ev, err := geofence.Evaluate(point, snap.Geofence)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !ev.WithinFence {
		return attendance.AttendanceResponse{}, ev.OutOfRange()
	}

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to generate attendance id: %w", err)
	}

	checkInTime := now.UTC()
	loc := ev.Location(point)
	record := attendance.Attendance{
		ID:              id.String(),
		UserID:          req.UserID,
		Date:            date,
		Status:          attendance.StatusPresent,
		CheckInTime:     &checkInTime,
		DeviceID:        &req.DeviceID,
		CheckInLocation: &loc,
	}
	if req.UserName != "" {
		record.UserName = &req.UserName
	}
	if res.IsLate {
		record.Status = attendance.StatusLate
		record.LateMinutes = res.LateMinutes
		record.LateReason = req.LateReason
	}

	created, applied, err := a.AttendanceRepository.InsertCheckIn(ctx, record)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to record check-in: %w", err)
	}
	if !applied {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedIn
	}

	slog.Info("Attendance checked in",
		"user_id", created.UserID,
		"date", created.Date,
		"status", created.Status,
		"late_minutes", created.LateMinutes,
		"distance_meters", math.Round(ev.DistanceMeters),
	)

	return a.mapAttendanceToResponse(created), nil
}

// classifyCheckOut applies the check-out preconditions to the stored record.
func classifyCheckOut(rec *attendance.Attendance, deviceID string) error {
	switch {
	case rec.State() == attendance.StateNoRecord:
		return attendance.ErrNotCheckedIn
	case rec.DeviceID == nil || *rec.DeviceID != deviceID:
		return attendance.ErrDeviceMismatch
	case rec.State() == attendance.StateCheckedOut:
		return attendance.ErrAlreadyCheckedOut
	}
	return nil
}

func (a *AttendanceServiceImpl) rejectCheckOut(err error, userID, date, deviceID string) error {
	if errors.Is(err, attendance.ErrDeviceMismatch) {
		slog.Warn("Attendance check-out from unbound device rejected",
			"user_id", userID,
			"date", date,
			"device_id", deviceID,
		)
	}
	return err
}

// CheckOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	now, date := a.localNow()

	existing, err := a.AttendanceRepository.GetByUserAndDate(ctx, req.UserID, date)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}
	if err := classifyCheckOut(existing, req.DeviceID); err != nil {
		return attendance.AttendanceResponse{}, a.rejectCheckOut(err, req.UserID, date, req.DeviceID)
	}

	snap, err := a.snapshots.Snapshot(ctx, date)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to load attendance settings: %w", err)
	}

	point := geofence.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	ev, err := geofence.Evaluate(point, snap.Geofence)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !ev.WithinFence {
		if a.policy.CheckOutRequiresFence {
			return attendance.AttendanceResponse{}, ev.OutOfRange()
		}
		slog.Info("Attendance check-out outside geofence recorded",
			"user_id", req.UserID,
			"date", date,
			"distance_meters", math.Round(ev.DistanceMeters),
		)
	}

	updated, applied, err := a.AttendanceRepository.RecordCheckOut(ctx, req.UserID, date, req.DeviceID, attendance.CheckOutWrite{
		Time:     now.UTC(),
		Location: ev.Location(point),
	})
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to record check-out: %w", err)
	}
	if !applied {
		// Lost a race; classify against what is stored now.
		current, err := a.AttendanceRepository.GetByUserAndDate(ctx, req.UserID, date)
		if err != nil {
			return attendance.AttendanceResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
		}
		if err := classifyCheckOut(current, req.DeviceID); err != nil {
			return attendance.AttendanceResponse{}, a.rejectCheckOut(err, req.UserID, date, req.DeviceID)
		}
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedOut
	}

	slog.Info("Attendance checked out",
		"user_id", updated.UserID,
		"date", updated.Date,
		"within_fence", ev.WithinFence,
	)

	return a.mapAttendanceToResponse(updated), nil
}

// Today implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Today(ctx context.Context, userID string) (attendance.TodayResponse, error) {
	now, date := a.localNow()

	snap, err := a.snapshots.Snapshot(ctx, date)
	if err != nil {
		return attendance.TodayResponse{}, fmt.Errorf("failed to load attendance settings: %w", err)
	}

	record, err := a.AttendanceRepository.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		return attendance.TodayResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}

	res := a.resolve(now, snap)
	state := record.State()

	resp := attendance.TodayResponse{
		Date:    date,
		State:   string(state),
		Blocked: res.Blocked,
	}
	if res.Blocked {
		resp.BlockReason = string(res.Reason)
	} else {
		resp.WorkStart = res.WorkStart.String()
		resp.LateThreshold = res.LateThreshold.String()
		resp.WorkEnd = res.WorkEnd.String()
	}
	if record != nil {
		r := a.mapAttendanceToResponse(*record)
		resp.TodayAttendance = &r
	}

	admissionErr := a.admit(res)
	resp.CanCheckIn = state == attendance.StateNoRecord && admissionErr == nil && snap.Geofence != nil
	resp.CanCheckOut = state == attendance.StateCheckedIn

	switch {
	case state == attendance.StateCheckedOut:
		resp.Message = "You have completed attendance for today"
	case state == attendance.StateCheckedIn:
		resp.Message = "You are checked in"
	case admissionErr != nil:
		resp.Message = admissionErr.Error()
	case snap.Geofence == nil:
		resp.Message = attendance.ErrConfigurationMissing.Error()
	case res.IsLate:
		resp.Message = fmt.Sprintf("You can check in now; you are %d minutes late", res.LateMinutes)
	default:
		resp.Message = "You can check in now"
	}

	return resp, nil
}

// History implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) History(ctx context.Context, userID string, filter attendance.HistoryFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	attendances, total, err := a.AttendanceRepository.ListByUser(ctx, userID, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to get attendance history: %w", err)
	}

	return a.listResponse(attendances, total, filter.Page, filter.Limit), nil
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	attendances, total, err := a.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	return a.listResponse(attendances, total, filter.Page, filter.Limit), nil
}

func (a *AttendanceServiceImpl) listResponse(attendances []attendance.Attendance, total int64, page, limit int) attendance.ListAttendanceResponse {
	responses := make([]attendance.AttendanceResponse, 0, len(attendances))
	for _, att := range attendances {
		responses = append(responses, a.mapAttendanceToResponse(att))
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	showing := fmt.Sprintf("%d-%d of %d", (page-1)*limit+1, min(page*limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}
}

// timePtrToString renders a timestamp in the institution timezone.
func (a *AttendanceServiceImpl) timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.In(a.loc).Format(time.RFC3339)
	return &format
}

func locationToResponse(l *attendance.Location) *attendance.LocationResponse {
	if l == nil {
		return nil
	}
	return &attendance.LocationResponse{
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
		DistanceMeters: math.Round(l.DistanceMeters*100) / 100,
	}
}

// mapAttendanceToResponse converts an Attendance entity to AttendanceResponse
func (a *AttendanceServiceImpl) mapAttendanceToResponse(att attendance.Attendance) attendance.AttendanceResponse {
	var workingHours *float64
	if att.CheckInTime != nil && att.CheckOutTime != nil {
		hours := math.Round(att.CheckOutTime.Sub(*att.CheckInTime).Hours()*100) / 100
		workingHours = &hours
	}

	return attendance.AttendanceResponse{
		ID:               att.ID,
		UserID:           att.UserID,
		UserName:         att.UserName,
		Date:             att.Date,
		Status:           string(att.Status),
		CheckInTime:      a.timePtrToString(att.CheckInTime),
		CheckOutTime:     a.timePtrToString(att.CheckOutTime),
		LateMinutes:      att.LateMinutes,
		LateReason:       att.LateReason,
		CheckInLocation:  locationToResponse(att.CheckInLocation),
		CheckOutLocation: locationToResponse(att.CheckOutLocation),
		WorkingHours:     workingHours,
		CreatedAt:        att.CreatedAt.In(a.loc).Format(time.RFC3339),
		UpdatedAt:        att.UpdatedAt.In(a.loc).Format(time.RFC3339),
	}
}
