package settings

import "context"

// SettingsRepository stores the administrator-owned configuration read by every check-in/out.
type SettingsRepository interface {
	// GetGeofence returns nil, nil when no fence has been configured yet
	GetGeofence(ctx context.Context) (*GeofenceConfig, error)
	UpsertGeofence(ctx context.Context, cfg GeofenceConfig) (GeofenceConfig, error)

	GetTimetable(ctx context.Context) (Timetable, error)
	UpsertScheduleEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error)
	DeleteScheduleEntry(ctx context.Context, day Weekday) error

	// GetException returns nil, nil when the date has no exception
	GetException(ctx context.Context, date string) (*CalendarException, error)
	ListExceptions(ctx context.Context, filter CalendarExceptionFilter) ([]CalendarException, error)
	CreateException(ctx context.Context, exception CalendarException) (CalendarException, error)
	DeleteException(ctx context.Context, date string) error
}
