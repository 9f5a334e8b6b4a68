package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
)

type settingsRepositoryImpl struct {
	mu         sync.RWMutex
	geofence   *settings.GeofenceConfig
	timetable  settings.Timetable
	exceptions map[string]settings.CalendarException
}

func NewSettingsRepository() settings.SettingsRepository {
	return &settingsRepositoryImpl{
		timetable:  make(settings.Timetable),
		exceptions: make(map[string]settings.CalendarException),
	}
}

// GetGeofence implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) GetGeofence(ctx context.Context) (*settings.GeofenceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.geofence == nil {
		return nil, nil
	}
	cfg := *r.geofence
	return &cfg, nil
}

// UpsertGeofence implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) UpsertGeofence(ctx context.Context, cfg settings.GeofenceConfig) (settings.GeofenceConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg.UpdatedAt = time.Now()
	r.geofence = &cfg
	return cfg, nil
}

// GetTimetable implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) GetTimetable(ctx context.Context) (settings.Timetable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tt := make(settings.Timetable, len(r.timetable))
	for day, entry := range r.timetable {
		tt[day] = entry
	}
	return tt, nil
}

// UpsertScheduleEntry implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) UpsertScheduleEntry(ctx context.Context, entry settings.ScheduleEntry) (settings.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.UpdatedAt = time.Now()
	r.timetable[entry.Day] = entry
	return entry, nil
}

// DeleteScheduleEntry implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) DeleteScheduleEntry(ctx context.Context, day settings.Weekday) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timetable[day]; !ok {
		return settings.ErrScheduleEntryNotFound
	}
	delete(r.timetable, day)
	return nil
}

// GetException implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) GetException(ctx context.Context, date string) (*settings.CalendarException, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ex, ok := r.exceptions[date]
	if !ok {
		return nil, nil
	}
	return &ex, nil
}

// ListExceptions implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) ListExceptions(ctx context.Context, filter settings.CalendarExceptionFilter) ([]settings.CalendarException, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]settings.CalendarException, 0, len(r.exceptions))
	for _, ex := range r.exceptions {
		if filter.StartDate != nil && ex.Date < *filter.StartDate {
			continue
		}
		if filter.EndDate != nil && ex.Date > *filter.EndDate {
			continue
		}
		if filter.Kind != nil && string(ex.Kind) != *filter.Kind {
			continue
		}
		result = append(result, ex)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// CreateException implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) CreateException(ctx context.Context, exception settings.CalendarException) (settings.CalendarException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exceptions[exception.Date]; exists {
		return settings.CalendarException{}, settings.ErrCalendarExceptionExists
	}
	exception.CreatedAt = time.Now()
	r.exceptions[exception.Date] = exception
	return exception, nil
}

// DeleteException implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) DeleteException(ctx context.Context, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exceptions[date]; !ok {
		return settings.ErrCalendarExceptionNotFound
	}
	delete(r.exceptions, date)
	return nil
}
