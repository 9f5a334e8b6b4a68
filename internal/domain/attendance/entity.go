package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
	StatusAbsent  Status = "Absent"
)

var StatusValues = []string{
	string(StatusPresent),
	string(StatusLate),
	string(StatusAbsent),
}

// Location is the position reported at a transition plus its distance from the fence center.
type Location struct {
	Latitude       float64
	Longitude      float64
	DistanceMeters float64
}

// Attendance is the per-user, per-day record. Identity is (UserID, Date).
type Attendance struct {
	ID               string
	UserID           string
	Date             string // YYYY-MM-DD in the institution timezone
	Status           Status
	CheckInTime      *time.Time
	CheckOutTime     *time.Time
	LateMinutes      int
	LateReason       *string
	DeviceID         *string
	CheckInLocation  *Location
	CheckOutLocation *Location
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// DTO
	UserName *string
}

// SessionState is the position of a record in NoRecord -> CheckedIn -> CheckedOut.
type SessionState string

const (
	StateNoRecord   SessionState = "no_record"
	StateCheckedIn  SessionState = "checked_in"
	StateCheckedOut SessionState = "checked_out"
)

// State derives the session state. Absent records carry no check-in and count as NoRecord.
func (a *Attendance) State() SessionState {
	switch {
	case a == nil || a.CheckInTime == nil:
		return StateNoRecord
	case a.CheckOutTime == nil:
		return StateCheckedIn
	default:
		return StateCheckedOut
	}
}
