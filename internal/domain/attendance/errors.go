package attendance

import (
	"errors"
	"fmt"
)

// Attendance domain errors
var (
	// Check-in/out sequence errors
	ErrAlreadyCheckedIn  = errors.New("you have already checked in today")
	ErrAlreadyCheckedOut = errors.New("you have already checked out today")
	ErrNotCheckedIn      = errors.New("you have not checked in today")
	ErrDeviceMismatch    = errors.New("attendance for today was started on another device")

	// Configuration and infrastructure errors
	ErrConfigurationMissing = errors.New("attendance configuration is missing")
	ErrStorageUnavailable   = errors.New("attendance storage is temporarily unavailable")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
)

// BlockReason explains why no attendance action is possible on a day.
type BlockReason string

const (
	ReasonHoliday             BlockReason = "Holiday"
	ReasonNonWorkingDay       BlockReason = "NonWorkingDay"
	ReasonScheduleMissing     BlockReason = "ScheduleMissing"
	ReasonOutsideWorkingHours BlockReason = "OutsideWorkingHours"
)

// AdmissionBlockedError is returned when the calendar or timetable forbids attendance.
type AdmissionBlockedError struct {
	Reason BlockReason
}

func (e *AdmissionBlockedError) Error() string {
	switch e.Reason {
	case ReasonHoliday:
		return "attendance is closed today: holiday"
	case ReasonNonWorkingDay:
		return "attendance is closed today: non-working day"
	case ReasonScheduleMissing:
		return "attendance is closed today: no timetable configured for this weekday"
	case ReasonOutsideWorkingHours:
		return "attendance is closed: outside working hours"
	default:
		return fmt.Sprintf("attendance is closed: %s", e.Reason)
	}
}

// OutOfRangeError is returned when the reported location is outside the geofence.
type OutOfRangeError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("you are %.0f m from the institution, outside the allowed %.0f m radius", e.DistanceMeters, e.RadiusMeters)
}

// IsAdmissionBlocked reports whether err is an AdmissionBlockedError and returns its reason.
func IsAdmissionBlocked(err error) (BlockReason, bool) {
	var blocked *AdmissionBlockedError
	if errors.As(err, &blocked) {
		return blocked.Reason, true
	}
	return "", false
}
