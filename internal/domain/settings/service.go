package settings

import "context"

// SettingsService covers the administrative writes and the per-decision snapshot read.
type SettingsService interface {
	// Snapshot loads geofence, timetable and the exception for date in one call
	Snapshot(ctx context.Context, date string) (Snapshot, error)

	GetGeofence(ctx context.Context) (GeofenceResponse, error)
	UpdateGeofence(ctx context.Context, req UpdateGeofenceRequest) (GeofenceResponse, error)

	GetTimetable(ctx context.Context) ([]ScheduleEntryResponse, error)
	UpsertScheduleEntry(ctx context.Context, req UpsertScheduleEntryRequest) (ScheduleEntryResponse, error)
	DeleteScheduleEntry(ctx context.Context, day string) error

	ListCalendarExceptions(ctx context.Context, filter CalendarExceptionFilter) ([]CalendarExceptionResponse, error)
	CreateCalendarException(ctx context.Context, req CreateCalendarExceptionRequest) (CalendarExceptionResponse, error)
	DeleteCalendarException(ctx context.Context, date string) error
}
