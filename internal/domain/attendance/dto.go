package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

// CheckInRequest carries only what the client may assert. Date, time and status are derived server-side.
type CheckInRequest struct {
	UserID     string  `json:"-"`
	UserName   string  `json:"-"`
	DeviceID   string  `json:"device_id" validate:"required,max=128"`
	Latitude   float64 `json:"latitude" validate:"latitude"`
	Longitude  float64 `json:"longitude" validate:"longitude"`
	LateReason *string `json:"late_reason,omitempty" validate:"omitempty,max=500"`
}

func (r *CheckInRequest) Validate() error {
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "authenticated user is required",
		})
	}

	if err := validator.Struct(r); err != nil {
		tagErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, tagErrs...)
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CheckOutRequest struct {
	UserID    string  `json:"-"`
	DeviceID  string  `json:"device_id" validate:"required,max=128"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

func (r *CheckOutRequest) Validate() error {
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "authenticated user is required",
		})
	}

	if err := validator.Struct(r); err != nil {
		tagErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, tagErrs...)
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// CheckOutWrite is the set of fields a check-out commits together.
type CheckOutWrite struct {
	Time     time.Time
	Location Location
}

type LocationResponse struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distance_meters"`
}

type AttendanceResponse struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	UserName         *string           `json:"user_name,omitempty"`
	Date             string            `json:"date"`
	Status           string            `json:"status"`
	CheckInTime      *string           `json:"check_in_time,omitempty"`
	CheckOutTime     *string           `json:"check_out_time,omitempty"`
	LateMinutes      int               `json:"late_minutes"`
	LateReason       *string           `json:"late_reason,omitempty"`
	CheckInLocation  *LocationResponse `json:"check_in_location,omitempty"`
	CheckOutLocation *LocationResponse `json:"check_out_location,omitempty"`
	WorkingHours     *float64          `json:"working_hours,omitempty"`
	CreatedAt        string            `json:"created_at"`
	UpdatedAt        string            `json:"updated_at"`
}

// ========================================
// ATTENDANCE STATUS DTOs
// ========================================

type TodayResponse struct {
	Date            string              `json:"date"`
	State           string              `json:"state"`
	Blocked         bool                `json:"blocked"`
	BlockReason     string              `json:"block_reason,omitempty"`
	WorkStart       string              `json:"work_start,omitempty"`
	LateThreshold   string              `json:"late_threshold,omitempty"`
	WorkEnd         string              `json:"work_end,omitempty"`
	CanCheckIn      bool                `json:"can_check_in"`
	CanCheckOut     bool                `json:"can_check_out"`
	TodayAttendance *AttendanceResponse `json:"today_attendance,omitempty"`
	Message         string              `json:"message"`
}

// ========================================
// LISTING DTOs
// ========================================

// DefaultHistoryLimit is the page size of a user's own history.
const DefaultHistoryLimit = 40

type HistoryFilter struct {
	StartDate *string `json:"start_date,omitempty" validate:"omitempty,yyyymmdd"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,yyyymmdd"`

	// Pagination
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

func (f *HistoryFilter) Validate() error {
	if err := validator.Struct(f); err != nil {
		return err
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = DefaultHistoryLimit
	}
	return nil
}

type AttendanceFilter struct {
	// Search & Filter
	UserID    *string `json:"user_id,omitempty"`
	Date      *string `json:"date,omitempty" validate:"omitempty,yyyymmdd"`
	StartDate *string `json:"start_date,omitempty" validate:"omitempty,yyyymmdd"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,yyyymmdd"`
	Status    *string `json:"status,omitempty" validate:"omitempty,oneof=Present Late Absent"`

	// Pagination
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`

	// Sorting
	SortBy    string `json:"sort_by" validate:"omitempty,oneof=date user_name check_in_time check_out_time status"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}

func (f *AttendanceFilter) Validate() error {
	if err := validator.Struct(f); err != nil {
		return err
	}
	if f.Page == 0 {
		f.Page = 1 // Default page
	}
	if f.Limit == 0 {
		f.Limit = 20 // Default limit
	}
	if f.SortBy == "" {
		f.SortBy = "date" // Default sort
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc" // Default descending (newest first)
	}
	f.SortOrder = strings.ToLower(f.SortOrder)
	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}
