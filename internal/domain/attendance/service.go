package attendance

import (
	"context"
)

// AttendanceService is the check-in/check-out state machine plus its read side.
type AttendanceService interface {
	// CheckIn admits, geofences and atomically opens today's record for the caller
	CheckIn(ctx context.Context, req CheckInRequest) (AttendanceResponse, error)

	// CheckOut atomically closes today's record for the caller
	CheckOut(ctx context.Context, req CheckOutRequest) (AttendanceResponse, error)

	// Today reports today's record and which actions are currently possible
	Today(ctx context.Context, userID string) (TodayResponse, error)

	// History retrieves the caller's own records
	History(ctx context.Context, userID string, filter HistoryFilter) (ListAttendanceResponse, error)

	// ListAttendance retrieves records with filters (admin)
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)
}
