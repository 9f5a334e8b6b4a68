package attendance

import (
	"context"
)

// AttendanceRepository defines data access for attendance records.
// Transitions are single conditional writes so concurrent requests for the same (user, date)
// cannot both succeed, across any number of server instances.
type AttendanceRepository interface {
	// InsertCheckIn creates the record for (UserID, Date), or fills in a check-in-less Absent
	// record for that key. applied is false when a check-in already exists.
	InsertCheckIn(ctx context.Context, record Attendance) (result Attendance, applied bool, err error)

	// RecordCheckOut sets the check-out fields only if the record is checked in, not yet checked out
	// and bound to deviceID. applied is false otherwise; the caller re-reads to classify why.
	RecordCheckOut(ctx context.Context, userID, date, deviceID string, checkOut CheckOutWrite) (result Attendance, applied bool, err error)

	// GetByUserAndDate returns nil, nil when no record exists
	GetByUserAndDate(ctx context.Context, userID string, date string) (*Attendance, error)

	// ListByUser retrieves one user's records, newest first
	ListByUser(ctx context.Context, userID string, filter HistoryFilter) ([]Attendance, int64, error)

	// List retrieves records with filters and pagination
	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)

	// DeleteBefore removes up to limit records dated strictly before cutoff and returns how many went
	DeleteBefore(ctx context.Context, cutoff string, limit int) (int64, error)

	// BulkCreateAbsences inserts Absent records, skipping keys that already exist
	BulkCreateAbsences(ctx context.Context, records []Attendance) (int64, error)
}
