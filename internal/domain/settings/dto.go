package settings

import (
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/validator"
)

// ========================================
// GEOFENCE DTOs
// ========================================

type UpdateGeofenceRequest struct {
	CenterLatitude  float64  `json:"center_latitude" validate:"latitude"`
	CenterLongitude float64  `json:"center_longitude" validate:"longitude"`
	RadiusMeters    *float64 `json:"radius_meters,omitempty" validate:"omitempty,gt=0,lte=100000"`
}

// DefaultRadiusMeters applies when an update omits the radius.
const DefaultRadiusMeters = 150

func (r *UpdateGeofenceRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	if r.RadiusMeters == nil {
		radius := float64(DefaultRadiusMeters)
		r.RadiusMeters = &radius
	}
	return nil
}

type GeofenceResponse struct {
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
	RadiusMeters    float64 `json:"radius_meters"`
	UpdatedAt       string  `json:"updated_at"`
}

// ========================================
// TIMETABLE DTOs
// ========================================

type UpsertScheduleEntryRequest struct {
	Day           string `json:"-"`
	WorkStart     string `json:"work_start" validate:"required,hhmm"`
	LateThreshold string `json:"late_threshold" validate:"required,hhmm"`
	WorkEnd       string `json:"work_end" validate:"required,hhmm"`
}

func (r *UpsertScheduleEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsInSlice(r.Day, WeekdayValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "day",
			Message: "day must be a weekday name, e.g. monday",
		})
	}

	if err := validator.Struct(r); err != nil {
		tagErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, tagErrs...)
		return errs
	}

	start, _ := ParseTimeOfDay(r.WorkStart)
	late, _ := ParseTimeOfDay(r.LateThreshold)
	end, _ := ParseTimeOfDay(r.WorkEnd)
	if late <= start {
		errs = append(errs, validator.ValidationError{
			Field:   "late_threshold",
			Message: "late_threshold must be after work_start",
		})
	}
	if end <= late {
		errs = append(errs, validator.ValidationError{
			Field:   "work_end",
			Message: "work_end must be after late_threshold",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ToEntry converts a validated request.
func (r *UpsertScheduleEntryRequest) ToEntry() (ScheduleEntry, error) {
	day, err := ParseWeekday(r.Day)
	if err != nil {
		return ScheduleEntry{}, err
	}
	start, err := ParseTimeOfDay(r.WorkStart)
	if err != nil {
		return ScheduleEntry{}, err
	}
	late, err := ParseTimeOfDay(r.LateThreshold)
	if err != nil {
		return ScheduleEntry{}, err
	}
	end, err := ParseTimeOfDay(r.WorkEnd)
	if err != nil {
		return ScheduleEntry{}, err
	}
	if !(start < late && late < end) {
		return ScheduleEntry{}, ErrInvalidScheduleWindowOrder
	}
	return ScheduleEntry{Day: day, WorkStart: start, LateThreshold: late, WorkEnd: end}, nil
}

type ScheduleEntryResponse struct {
	Day           string `json:"day"`
	WorkStart     string `json:"work_start"`
	LateThreshold string `json:"late_threshold"`
	WorkEnd       string `json:"work_end"`
	UpdatedAt     string `json:"updated_at"`
}

// ========================================
// CALENDAR DTOs
// ========================================

type CreateCalendarExceptionRequest struct {
	Date        string  `json:"date" validate:"required,yyyymmdd"`
	Kind        string  `json:"kind" validate:"required,oneof=holiday special_working_day"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

func (r *CreateCalendarExceptionRequest) Validate() error {
	return validator.Struct(r)
}

type CalendarExceptionFilter struct {
	StartDate *string `json:"start_date,omitempty" validate:"omitempty,yyyymmdd"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,yyyymmdd"`
	Kind      *string `json:"kind,omitempty" validate:"omitempty,oneof=holiday special_working_day"`
}

func (f *CalendarExceptionFilter) Validate() error {
	return validator.Struct(f)
}

type CalendarExceptionResponse struct {
	Date        string  `json:"date"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}
