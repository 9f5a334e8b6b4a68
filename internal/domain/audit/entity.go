package audit

import "time"

type Action string

const (
	ActionGeofenceUpdated          Action = "geofence.updated"
	ActionScheduleEntryUpserted    Action = "timetable.upserted"
	ActionScheduleEntryDeleted     Action = "timetable.deleted"
	ActionCalendarExceptionCreated Action = "calendar.created"
	ActionCalendarExceptionDeleted Action = "calendar.deleted"
	ActionRetentionSweepTriggered  Action = "retention.triggered"
)

// Entry is one append-only record of an administrative mutation.
type Entry struct {
	ID        string
	ActorID   string
	ActorName *string
	Action    Action
	Target    string
	Details   map[string]any
	CreatedAt time.Time
}
