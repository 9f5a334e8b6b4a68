package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Attendance admission and geofence errors carry data for the client
	var blocked *attendance.AdmissionBlockedError
	if errors.As(err, &blocked) {
		Error(w, http.StatusUnprocessableEntity, "ADMISSION_BLOCKED", blocked.Error(), map[string]string{
			"reason": string(blocked.Reason),
		})
		return
	}

	var outOfRange *attendance.OutOfRangeError
	if errors.As(err, &outOfRange) {
		Error(w, http.StatusForbidden, "OUT_OF_RANGE", outOfRange.Error(), map[string]string{
			"distance_meters": strconv.FormatFloat(outOfRange.DistanceMeters, 'f', 1, 64),
			"radius_meters":   strconv.FormatFloat(outOfRange.RadiusMeters, 'f', 1, 64),
		})
		return
	}

	switch {
	// Attendance sequence errors
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Error(w, http.StatusConflict, "ALREADY_CHECKED_IN", err.Error(), nil)
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Error(w, http.StatusConflict, "ALREADY_CHECKED_OUT", err.Error(), nil)
	case errors.Is(err, attendance.ErrNotCheckedIn):
		Error(w, http.StatusConflict, "NOT_CHECKED_IN", err.Error(), nil)
	case errors.Is(err, attendance.ErrDeviceMismatch):
		Error(w, http.StatusForbidden, "DEVICE_MISMATCH", err.Error(), nil)
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")

	// Configuration and infrastructure
	case errors.Is(err, attendance.ErrConfigurationMissing):
		ServiceUnavailable(w, "CONFIGURATION_MISSING", "Attendance is not configured yet, contact an administrator")
	case errors.Is(err, attendance.ErrStorageUnavailable):
		slog.Error("Storage unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		ServiceUnavailable(w, "STORAGE_UNAVAILABLE", "Attendance storage is temporarily unavailable, please retry")

	// Settings domain errors
	case errors.Is(err, settings.ErrGeofenceNotConfigured):
		NotFound(w, "Geofence is not configured")
	case errors.Is(err, settings.ErrScheduleEntryNotFound):
		NotFound(w, "Timetable entry not found")
	case errors.Is(err, settings.ErrCalendarExceptionNotFound):
		NotFound(w, "Calendar exception not found")
	case errors.Is(err, settings.ErrCalendarExceptionExists):
		Conflict(w, "A calendar exception already exists for this date")

	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrAccountInactive):
		Forbidden(w, "Account is inactive")
	case errors.Is(err, user.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
