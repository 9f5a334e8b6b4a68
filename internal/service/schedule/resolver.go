// Package schedule resolves whether a calendar day admits attendance and how late a time of day is.
package schedule

import (
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
)

type ResolveInput struct {
	Day       settings.Weekday
	TimeOfDay settings.TimeOfDay
	// Exception is the calendar override for the day being resolved, if any
	Exception *settings.CalendarException
	Timetable settings.Timetable
	RestDays  map[settings.Weekday]bool
}

type Resolution struct {
	Blocked bool
	Reason  attendance.BlockReason

	IsLate      bool
	LateMinutes int

	WorkStart        settings.TimeOfDay
	LateThreshold    settings.TimeOfDay
	WorkEnd          settings.TimeOfDay
	WithinWorkWindow bool
}

// Resolve applies, in order: holiday, rest day without a special working day, missing timetable entry,
// then lateness. Being outside the work window is reported but does not block here.
func Resolve(in ResolveInput) Resolution {
	if in.Exception != nil && in.Exception.Kind == settings.ExceptionHoliday {
		return Resolution{Blocked: true, Reason: attendance.ReasonHoliday}
	}

	special := in.Exception != nil && in.Exception.Kind == settings.ExceptionSpecialWorkingDay
	if in.RestDays[in.Day] && !special {
		return Resolution{Blocked: true, Reason: attendance.ReasonNonWorkingDay}
	}

	entry, ok := in.Timetable[in.Day]
	if !ok {
		return Resolution{Blocked: true, Reason: attendance.ReasonScheduleMissing}
	}

	res := Resolution{
		WorkStart:        entry.WorkStart,
		LateThreshold:    entry.LateThreshold,
		WorkEnd:          entry.WorkEnd,
		WithinWorkWindow: in.TimeOfDay >= entry.WorkStart && in.TimeOfDay <= entry.WorkEnd,
	}
	if in.TimeOfDay > entry.LateThreshold {
		res.IsLate = true
		res.LateMinutes = int(in.TimeOfDay - entry.LateThreshold)
	}
	return res
}

// RestDaySet builds the rest day lookup from configured names, ignoring unknown ones.
func RestDaySet(names []string) map[settings.Weekday]bool {
	set := make(map[settings.Weekday]bool, len(names))
	for _, n := range names {
		if d, err := settings.ParseWeekday(n); err == nil {
			set[d] = true
		}
	}
	return set
}
