// Package memory holds single-process repositories used by DB_DRIVER=memory and by tests.
// Each conditional write runs under one mutex so it is as atomic as its SQL counterpart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
)

type attendanceRepositoryImpl struct {
	mu      sync.Mutex
	records map[string]*attendance.Attendance
	now     func() time.Time
}

func NewAttendanceRepository() attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{
		records: make(map[string]*attendance.Attendance),
		now:     time.Now,
	}
}

func attendanceKey(userID, date string) string {
	return userID + "|" + date
}

func cloneAttendance(a *attendance.Attendance) attendance.Attendance {
	c := *a
	if a.CheckInTime != nil {
		t := *a.CheckInTime
		c.CheckInTime = &t
	}
	if a.CheckOutTime != nil {
		t := *a.CheckOutTime
		c.CheckOutTime = &t
	}
	if a.LateReason != nil {
		s := *a.LateReason
		c.LateReason = &s
	}
	if a.DeviceID != nil {
		s := *a.DeviceID
		c.DeviceID = &s
	}
	if a.UserName != nil {
		s := *a.UserName
		c.UserName = &s
	}
	if a.CheckInLocation != nil {
		l := *a.CheckInLocation
		c.CheckInLocation = &l
	}
	if a.CheckOutLocation != nil {
		l := *a.CheckOutLocation
		c.CheckOutLocation = &l
	}
	return c
}

// InsertCheckIn implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) InsertCheckIn(ctx context.Context, record attendance.Attendance) (attendance.Attendance, bool, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Attendance{}, false, attendance.ErrStorageUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := attendanceKey(record.UserID, record.Date)
	now := r.now()

	existing, ok := r.records[key]
	if ok && existing.CheckInTime != nil {
		return attendance.Attendance{}, false, nil
	}

	stored := cloneAttendance(&record)
	stored.CheckOutTime = nil
	stored.CheckOutLocation = nil
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if ok {
		// Upgrade an Absent placeholder in place.
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		if stored.UserName == nil {
			stored.UserName = existing.UserName
		}
	}
	r.records[key] = &stored

	return cloneAttendance(&stored), true, nil
}

// RecordCheckOut implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) RecordCheckOut(ctx context.Context, userID, date, deviceID string, checkOut attendance.CheckOutWrite) (attendance.Attendance, bool, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Attendance{}, false, attendance.ErrStorageUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[attendanceKey(userID, date)]
	if !ok || rec.CheckInTime == nil || rec.CheckOutTime != nil || rec.DeviceID == nil || *rec.DeviceID != deviceID {
		return attendance.Attendance{}, false, nil
	}

	t := checkOut.Time
	loc := checkOut.Location
	rec.CheckOutTime = &t
	rec.CheckOutLocation = &loc
	rec.UpdatedAt = r.now()

	return cloneAttendance(rec), true, nil
}

// GetByUserAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetByUserAndDate(ctx context.Context, userID string, date string) (*attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, attendance.ErrStorageUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[attendanceKey(userID, date)]
	if !ok {
		return nil, nil
	}
	c := cloneAttendance(rec)
	return &c, nil
}

func inDateRange(date string, start, end *string) bool {
	if start != nil && date < *start {
		return false
	}
	if end != nil && date > *end {
		return false
	}
	return true
}

func paginate(items []attendance.Attendance, page, limit int) []attendance.Attendance {
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []attendance.Attendance{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// ListByUser implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListByUser(ctx context.Context, userID string, filter attendance.HistoryFilter) ([]attendance.Attendance, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, attendance.ErrStorageUnavailable
	}

	r.mu.Lock()
	var matched []attendance.Attendance
	for _, rec := range r.records {
		if rec.UserID == userID && inDateRange(rec.Date, filter.StartDate, filter.EndDate) {
			matched = append(matched, cloneAttendance(rec))
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Date > matched[j].Date })

	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, attendance.ErrStorageUnavailable
	}

	r.mu.Lock()
	var matched []attendance.Attendance
	for _, rec := range r.records {
		if filter.UserID != nil && rec.UserID != *filter.UserID {
			continue
		}
		if filter.Date != nil && rec.Date != *filter.Date {
			continue
		}
		if filter.Status != nil && string(rec.Status) != *filter.Status {
			continue
		}
		if !inDateRange(rec.Date, filter.StartDate, filter.EndDate) {
			continue
		}
		matched = append(matched, cloneAttendance(rec))
	}
	r.mu.Unlock()

	less := func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.SortBy {
		case "user_name":
			return stringOrEmpty(a.UserName) < stringOrEmpty(b.UserName)
		case "check_in_time":
			return timeOrZero(a.CheckInTime).Before(timeOrZero(b.CheckInTime))
		case "check_out_time":
			return timeOrZero(a.CheckOutTime).Before(timeOrZero(b.CheckOutTime))
		case "status":
			return a.Status < b.Status
		default:
			if a.Date == b.Date {
				return a.UserID < b.UserID
			}
			return a.Date < b.Date
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if strings.EqualFold(filter.SortOrder, "desc") {
			return less(j, i)
		}
		return less(i, j)
	})

	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

// DeleteBefore implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) DeleteBefore(ctx context.Context, cutoff string, limit int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, attendance.ErrStorageUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []string
	for key, rec := range r.records {
		if rec.Date < cutoff {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	for _, key := range keys {
		delete(r.records, key)
	}
	return int64(len(keys)), nil
}

// BulkCreateAbsences implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) BulkCreateAbsences(ctx context.Context, records []attendance.Attendance) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, attendance.ErrStorageUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var inserted int64
	for i := range records {
		key := attendanceKey(records[i].UserID, records[i].Date)
		if _, exists := r.records[key]; exists {
			continue
		}
		stored := cloneAttendance(&records[i])
		stored.Status = attendance.StatusAbsent
		stored.CheckInTime = nil
		stored.CheckOutTime = nil
		stored.CreatedAt = now
		stored.UpdatedAt = now
		r.records[key] = &stored
		inserted++
	}
	return inserted, nil
}
