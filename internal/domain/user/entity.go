package user

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"   // Manages geofence, timetable and calendar
	RoleTeacher Role = "teacher" // Checks in and out
)

var RoleValues = []string{
	string(RoleAdmin),
	string(RoleTeacher),
}

// User is owned by account management; this service only reads it.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin checks if user administers the institution settings
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
