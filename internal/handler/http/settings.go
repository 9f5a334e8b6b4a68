package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type SettingsHandler interface {
	GetGeofence(w http.ResponseWriter, r *http.Request)
	UpdateGeofence(w http.ResponseWriter, r *http.Request)
	GetTimetable(w http.ResponseWriter, r *http.Request)
	UpsertScheduleEntry(w http.ResponseWriter, r *http.Request)
	DeleteScheduleEntry(w http.ResponseWriter, r *http.Request)
	ListCalendarExceptions(w http.ResponseWriter, r *http.Request)
	CreateCalendarException(w http.ResponseWriter, r *http.Request)
	DeleteCalendarException(w http.ResponseWriter, r *http.Request)
}

type settingsHandlerImpl struct {
	settingsService settings.SettingsService
}

func NewSettingsHandler(settingsService settings.SettingsService) SettingsHandler {
	return &settingsHandlerImpl{
		settingsService: settingsService,
	}
}

// GetGeofence implements SettingsHandler.
func (h *settingsHandlerImpl) GetGeofence(w http.ResponseWriter, r *http.Request) {
	result, err := h.settingsService.GetGeofence(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpdateGeofence implements SettingsHandler.
func (h *settingsHandlerImpl) UpdateGeofence(w http.ResponseWriter, r *http.Request) {
	var req settings.UpdateGeofenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpdateGeofence decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.settingsService.UpdateGeofence(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Geofence updated", result)
}

// GetTimetable implements SettingsHandler.
func (h *settingsHandlerImpl) GetTimetable(w http.ResponseWriter, r *http.Request) {
	result, err := h.settingsService.GetTimetable(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpsertScheduleEntry implements SettingsHandler.
func (h *settingsHandlerImpl) UpsertScheduleEntry(w http.ResponseWriter, r *http.Request) {
	var req settings.UpsertScheduleEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpsertScheduleEntry decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.Day = chi.URLParam(r, "day")

	result, err := h.settingsService.UpsertScheduleEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timetable entry saved", result)
}

// DeleteScheduleEntry implements SettingsHandler.
func (h *settingsHandlerImpl) DeleteScheduleEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.settingsService.DeleteScheduleEntry(r.Context(), chi.URLParam(r, "day")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timetable entry deleted", nil)
}

// ListCalendarExceptions implements SettingsHandler.
func (h *settingsHandlerImpl) ListCalendarExceptions(w http.ResponseWriter, r *http.Request) {
	filter := settings.CalendarExceptionFilter{
		StartDate: queryString(r, "start_date"),
		EndDate:   queryString(r, "end_date"),
		Kind:      queryString(r, "kind"),
	}

	result, err := h.settingsService.ListCalendarExceptions(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateCalendarException implements SettingsHandler.
func (h *settingsHandlerImpl) CreateCalendarException(w http.ResponseWriter, r *http.Request) {
	var req settings.CreateCalendarExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateCalendarException decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.settingsService.CreateCalendarException(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Calendar exception created", result)
}

// DeleteCalendarException implements SettingsHandler.
func (h *settingsHandlerImpl) DeleteCalendarException(w http.ResponseWriter, r *http.Request) {
	if err := h.settingsService.DeleteCalendarException(r.Context(), chi.URLParam(r, "date")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Calendar exception deleted", nil)
}
