package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/validator"
)

type SettingsServiceImpl struct {
	settings.SettingsRepository
	recorder audit.Recorder
	loc      *time.Location
}

func NewSettingsService(settingsRepo settings.SettingsRepository, recorder audit.Recorder, loc *time.Location) *SettingsServiceImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &SettingsServiceImpl{
		SettingsRepository: settingsRepo,
		recorder:           recorder,
		loc:                loc,
	}
}

func (s *SettingsServiceImpl) record(ctx context.Context, action audit.Action, target string, details map[string]any) {
	if s.recorder == nil {
		return
	}
	actor := audit.ActorFrom(ctx)
	entry := audit.Entry{
		ActorID: actor.ID,
		Action:  action,
		Target:  target,
		Details: details,
	}
	if actor.Name != "" {
		entry.ActorName = &actor.Name
	}
	s.recorder.Record(ctx, entry)
}

func (s *SettingsServiceImpl) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(s.loc).Format(time.RFC3339)
}

// Snapshot implements settings.SettingsService.
func (s *SettingsServiceImpl) Snapshot(ctx context.Context, date string) (settings.Snapshot, error) {
	geofence, err := s.SettingsRepository.GetGeofence(ctx)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("failed to get geofence: %w", err)
	}

	timetable, err := s.SettingsRepository.GetTimetable(ctx)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("failed to get timetable: %w", err)
	}

	exception, err := s.SettingsRepository.GetException(ctx, date)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("failed to get calendar exception: %w", err)
	}

	return settings.Snapshot{
		Geofence:  geofence,
		Timetable: timetable,
		Exception: exception,
	}, nil
}

// GetGeofence implements settings.SettingsService.
func (s *SettingsServiceImpl) GetGeofence(ctx context.Context) (settings.GeofenceResponse, error) {
	cfg, err := s.SettingsRepository.GetGeofence(ctx)
	if err != nil {
		return settings.GeofenceResponse{}, fmt.Errorf("failed to get geofence: %w", err)
	}
	if cfg == nil {
		return settings.GeofenceResponse{}, settings.ErrGeofenceNotConfigured
	}
	return s.mapGeofenceToResponse(*cfg), nil
}

// UpdateGeofence implements settings.SettingsService.
func (s *SettingsServiceImpl) UpdateGeofence(ctx context.Context, req settings.UpdateGeofenceRequest) (settings.GeofenceResponse, error) {
	if err := req.Validate(); err != nil {
		return settings.GeofenceResponse{}, err
	}

	saved, err := s.SettingsRepository.UpsertGeofence(ctx, settings.GeofenceConfig{
		CenterLatitude:  req.CenterLatitude,
		CenterLongitude: req.CenterLongitude,
		RadiusMeters:    *req.RadiusMeters,
	})
	if err != nil {
		return settings.GeofenceResponse{}, fmt.Errorf("failed to update geofence: %w", err)
	}

	s.record(ctx, audit.ActionGeofenceUpdated, "geofence", map[string]any{
		"center_latitude":  saved.CenterLatitude,
		"center_longitude": saved.CenterLongitude,
		"radius_meters":    saved.RadiusMeters,
	})

	return s.mapGeofenceToResponse(saved), nil
}

func (s *SettingsServiceImpl) mapGeofenceToResponse(cfg settings.GeofenceConfig) settings.GeofenceResponse {
	return settings.GeofenceResponse{
		CenterLatitude:  cfg.CenterLatitude,
		CenterLongitude: cfg.CenterLongitude,
		RadiusMeters:    cfg.RadiusMeters,
		UpdatedAt:       s.formatTime(cfg.UpdatedAt),
	}
}

// GetTimetable implements settings.SettingsService. Entries come back Monday first.
func (s *SettingsServiceImpl) GetTimetable(ctx context.Context) ([]settings.ScheduleEntryResponse, error) {
	timetable, err := s.SettingsRepository.GetTimetable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get timetable: %w", err)
	}

	responses := make([]settings.ScheduleEntryResponse, 0, len(timetable))
	for _, day := range settings.WeekdayValues {
		if entry, ok := timetable[settings.Weekday(day)]; ok {
			responses = append(responses, s.mapScheduleEntryToResponse(entry))
		}
	}
	return responses, nil
}

// UpsertScheduleEntry implements settings.SettingsService.
func (s *SettingsServiceImpl) UpsertScheduleEntry(ctx context.Context, req settings.UpsertScheduleEntryRequest) (settings.ScheduleEntryResponse, error) {
	if day, err := settings.ParseWeekday(req.Day); err == nil {
		req.Day = string(day)
	}
	if err := req.Validate(); err != nil {
		return settings.ScheduleEntryResponse{}, err
	}

	entry, err := req.ToEntry()
	if err != nil {
		return settings.ScheduleEntryResponse{}, err
	}

	saved, err := s.SettingsRepository.UpsertScheduleEntry(ctx, entry)
	if err != nil {
		return settings.ScheduleEntryResponse{}, fmt.Errorf("failed to save timetable entry: %w", err)
	}

	s.record(ctx, audit.ActionScheduleEntryUpserted, string(saved.Day), map[string]any{
		"work_start":     saved.WorkStart.String(),
		"late_threshold": saved.LateThreshold.String(),
		"work_end":       saved.WorkEnd.String(),
	})

	return s.mapScheduleEntryToResponse(saved), nil
}

// DeleteScheduleEntry implements settings.SettingsService.
func (s *SettingsServiceImpl) DeleteScheduleEntry(ctx context.Context, day string) error {
	weekday, err := settings.ParseWeekday(day)
	if err != nil {
		return validator.ValidationErrors{{Field: "day", Message: "day must be a weekday name, e.g. monday"}}
	}

	if err := s.SettingsRepository.DeleteScheduleEntry(ctx, weekday); err != nil {
		if errors.Is(err, settings.ErrScheduleEntryNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete timetable entry: %w", err)
	}

	s.record(ctx, audit.ActionScheduleEntryDeleted, string(weekday), nil)
	return nil
}

func (s *SettingsServiceImpl) mapScheduleEntryToResponse(entry settings.ScheduleEntry) settings.ScheduleEntryResponse {
	return settings.ScheduleEntryResponse{
		Day:           string(entry.Day),
		WorkStart:     entry.WorkStart.String(),
		LateThreshold: entry.LateThreshold.String(),
		WorkEnd:       entry.WorkEnd.String(),
		UpdatedAt:     s.formatTime(entry.UpdatedAt),
	}
}

// ListCalendarExceptions implements settings.SettingsService.
func (s *SettingsServiceImpl) ListCalendarExceptions(ctx context.Context, filter settings.CalendarExceptionFilter) ([]settings.CalendarExceptionResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	exceptions, err := s.SettingsRepository.ListExceptions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar exceptions: %w", err)
	}

	responses := make([]settings.CalendarExceptionResponse, 0, len(exceptions))
	for _, ex := range exceptions {
		responses = append(responses, s.mapExceptionToResponse(ex))
	}
	return responses, nil
}

// CreateCalendarException implements settings.SettingsService.
func (s *SettingsServiceImpl) CreateCalendarException(ctx context.Context, req settings.CreateCalendarExceptionRequest) (settings.CalendarExceptionResponse, error) {
	if err := req.Validate(); err != nil {
		return settings.CalendarExceptionResponse{}, err
	}

	created, err := s.SettingsRepository.CreateException(ctx, settings.CalendarException{
		Date:        req.Date,
		Kind:        settings.ExceptionKind(req.Kind),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, settings.ErrCalendarExceptionExists) {
			return settings.CalendarExceptionResponse{}, err
		}
		return settings.CalendarExceptionResponse{}, fmt.Errorf("failed to create calendar exception: %w", err)
	}

	s.record(ctx, audit.ActionCalendarExceptionCreated, created.Date, map[string]any{
		"kind": string(created.Kind),
		"name": created.Name,
	})

	return s.mapExceptionToResponse(created), nil
}

// DeleteCalendarException implements settings.SettingsService.
func (s *SettingsServiceImpl) DeleteCalendarException(ctx context.Context, date string) error {
	if _, ok := validator.IsValidDate(date); !ok {
		return validator.ValidationErrors{{Field: "date", Message: "date must be in YYYY-MM-DD format"}}
	}

	if err := s.SettingsRepository.DeleteException(ctx, date); err != nil {
		if errors.Is(err, settings.ErrCalendarExceptionNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete calendar exception: %w", err)
	}

	s.record(ctx, audit.ActionCalendarExceptionDeleted, date, nil)
	return nil
}

func (s *SettingsServiceImpl) mapExceptionToResponse(ex settings.CalendarException) settings.CalendarExceptionResponse {
	return settings.CalendarExceptionResponse{
		Date:        ex.Date,
		Kind:        string(ex.Kind),
		Name:        ex.Name,
		Description: ex.Description,
		CreatedAt:   s.formatTime(ex.CreatedAt),
	}
}
