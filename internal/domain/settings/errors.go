package settings

import "errors"

var (
	ErrInvalidWeekday             = errors.New("invalid weekday")
	ErrInvalidTimeOfDay           = errors.New("invalid time of day, use HH:MM")
	ErrScheduleEntryNotFound      = errors.New("schedule entry not found")
	ErrCalendarExceptionNotFound  = errors.New("calendar exception not found")
	ErrCalendarExceptionExists    = errors.New("a calendar exception already exists for this date")
	ErrGeofenceNotConfigured      = errors.New("geofence is not configured")
	ErrInvalidScheduleWindowOrder = errors.New("schedule must satisfy work_start < late_threshold < work_end")
)
