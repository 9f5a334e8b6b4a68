package settings

import (
	"fmt"
	"strings"
	"time"
)

// GeofenceConfig is the institution's single circular fence.
type GeofenceConfig struct {
	CenterLatitude  float64
	CenterLongitude float64
	RadiusMeters    float64
	UpdatedAt       time.Time
}

// Weekday is a lowercase English day name, the key of the weekly timetable.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var WeekdayValues = []string{
	string(Monday),
	string(Tuesday),
	string(Wednesday),
	string(Thursday),
	string(Friday),
	string(Saturday),
	string(Sunday),
}

// WeekdayOf maps a calendar date to its timetable key.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(strings.ToLower(t.Weekday().String()))
}

// ParseWeekday accepts any casing of a day name.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range WeekdayValues {
		if string(d) == v {
			return d, nil
		}
	}
	return "", ErrInvalidWeekday
}

// TimeOfDay is a local wall-clock time in whole minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOfDayOf truncates t to the minute.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ScheduleEntry is the working window for one weekday.
type ScheduleEntry struct {
	Day           Weekday
	WorkStart     TimeOfDay
	LateThreshold TimeOfDay
	WorkEnd       TimeOfDay
	UpdatedAt     time.Time
}

// Timetable holds at most one entry per weekday. A missing day means no work is expected.
type Timetable map[Weekday]ScheduleEntry

type ExceptionKind string

const (
	ExceptionHoliday           ExceptionKind = "holiday"
	ExceptionSpecialWorkingDay ExceptionKind = "special_working_day"
)

var ExceptionKindValues = []string{
	string(ExceptionHoliday),
	string(ExceptionSpecialWorkingDay),
}

// CalendarException overrides the weekly timetable for a single date.
type CalendarException struct {
	Date        string // YYYY-MM-DD
	Kind        ExceptionKind
	Name        string
	Description *string
	CreatedAt   time.Time
}

// Snapshot is everything the evaluators need for one attendance decision.
type Snapshot struct {
	Geofence  *GeofenceConfig
	Timetable Timetable
	Exception *CalendarException
}
