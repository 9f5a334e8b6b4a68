package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingsRepository struct {
	db *database.DB
}

// GetGeofence implements settings.SettingsRepository.
func (r *settingsRepository) GetGeofence(ctx context.Context) (*settings.GeofenceConfig, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT center_latitude, center_longitude, radius_meters, updated_at
		FROM geofence_settings
		WHERE id = 1
	`

	var cfg settings.GeofenceConfig
	err := q.QueryRow(ctx, query).Scan(&cfg.CenterLatitude, &cfg.CenterLongitude, &cfg.RadiusMeters, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to get geofence: %w", err))
	}

	return &cfg, nil
}

// UpsertGeofence implements settings.SettingsRepository.
func (r *settingsRepository) UpsertGeofence(ctx context.Context, cfg settings.GeofenceConfig) (settings.GeofenceConfig, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO geofence_settings (id, center_latitude, center_longitude, radius_meters, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			center_latitude = EXCLUDED.center_latitude,
			center_longitude = EXCLUDED.center_longitude,
			radius_meters = EXCLUDED.radius_meters,
			updated_at = NOW()
		RETURNING center_latitude, center_longitude, radius_meters, updated_at
	`

	var saved settings.GeofenceConfig
	err := q.QueryRow(ctx, query, cfg.CenterLatitude, cfg.CenterLongitude, cfg.RadiusMeters).Scan(
		&saved.CenterLatitude, &saved.CenterLongitude, &saved.RadiusMeters, &saved.UpdatedAt,
	)
	if err != nil {
		return settings.GeofenceConfig{}, classify(fmt.Errorf("failed to upsert geofence: %w", err))
	}

	return saved, nil
}

func scanScheduleEntry(row pgx.Row) (settings.ScheduleEntry, error) {
	var (
		entry                settings.ScheduleEntry
		day                  string
		start, late, workEnd string
	)
	if err := row.Scan(&day, &start, &late, &workEnd, &entry.UpdatedAt); err != nil {
		return settings.ScheduleEntry{}, err
	}

	var err error
	if entry.Day, err = settings.ParseWeekday(day); err != nil {
		return settings.ScheduleEntry{}, err
	}
	if entry.WorkStart, err = settings.ParseTimeOfDay(start); err != nil {
		return settings.ScheduleEntry{}, err
	}
	if entry.LateThreshold, err = settings.ParseTimeOfDay(late); err != nil {
		return settings.ScheduleEntry{}, err
	}
	if entry.WorkEnd, err = settings.ParseTimeOfDay(workEnd); err != nil {
		return settings.ScheduleEntry{}, err
	}
	return entry, nil
}

// GetTimetable implements settings.SettingsRepository.
func (r *settingsRepository) GetTimetable(ctx context.Context) (settings.Timetable, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT day, to_char(work_start, 'HH24:MI'), to_char(late_threshold, 'HH24:MI'),
			   to_char(work_end, 'HH24:MI'), updated_at
		FROM timetable
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query timetable: %w", err))
	}
	defer rows.Close()

	timetable := make(settings.Timetable)
	for rows.Next() {
		entry, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to scan timetable entry: %w", err))
		}
		timetable[entry.Day] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate timetable: %w", err))
	}

	return timetable, nil
}

// UpsertScheduleEntry implements settings.SettingsRepository.
func (r *settingsRepository) UpsertScheduleEntry(ctx context.Context, entry settings.ScheduleEntry) (settings.ScheduleEntry, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO timetable (day, work_start, late_threshold, work_end, updated_at)
		VALUES ($1, $2::time, $3::time, $4::time, NOW())
		ON CONFLICT (day) DO UPDATE SET
			work_start = EXCLUDED.work_start,
			late_threshold = EXCLUDED.late_threshold,
			work_end = EXCLUDED.work_end,
			updated_at = NOW()
		RETURNING day, to_char(work_start, 'HH24:MI'), to_char(late_threshold, 'HH24:MI'),
				  to_char(work_end, 'HH24:MI'), updated_at
	`

	saved, err := scanScheduleEntry(q.QueryRow(ctx, query,
		string(entry.Day), entry.WorkStart.String(), entry.LateThreshold.String(), entry.WorkEnd.String(),
	))
	if err != nil {
		return settings.ScheduleEntry{}, classify(fmt.Errorf("failed to upsert timetable entry: %w", err))
	}

	return saved, nil
}

// DeleteScheduleEntry implements settings.SettingsRepository.
func (r *settingsRepository) DeleteScheduleEntry(ctx context.Context, day settings.Weekday) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `DELETE FROM timetable WHERE day = $1`, string(day))
	if err != nil {
		return classify(fmt.Errorf("failed to delete timetable entry: %w", err))
	}
	if commandTag.RowsAffected() == 0 {
		return settings.ErrScheduleEntryNotFound
	}

	return nil
}

const exceptionColumns = `date::text, kind, name, description, created_at`

func scanException(row pgx.Row) (settings.CalendarException, error) {
	var ex settings.CalendarException
	err := row.Scan(&ex.Date, &ex.Kind, &ex.Name, &ex.Description, &ex.CreatedAt)
	return ex, err
}

// GetException implements settings.SettingsRepository.
func (r *settingsRepository) GetException(ctx context.Context, date string) (*settings.CalendarException, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	ex, err := scanException(q.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM calendar_exceptions WHERE date = $1::date`, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to get calendar exception: %w", err))
	}

	return &ex, nil
}

// ListExceptions implements settings.SettingsRepository.
func (r *settingsRepository) ListExceptions(ctx context.Context, filter settings.CalendarExceptionFilter) ([]settings.CalendarException, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Kind != nil && *filter.Kind != "" {
		baseWhere += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, *filter.Kind)
	}

	rows, err := q.Query(ctx, `SELECT `+exceptionColumns+` FROM calendar_exceptions WHERE `+baseWhere+` ORDER BY date`, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query calendar exceptions: %w", err))
	}
	defer rows.Close()

	exceptions := make([]settings.CalendarException, 0)
	for rows.Next() {
		ex, err := scanException(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to scan calendar exception: %w", err))
		}
		exceptions = append(exceptions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate calendar exceptions: %w", err))
	}

	return exceptions, nil
}

// CreateException implements settings.SettingsRepository.
func (r *settingsRepository) CreateException(ctx context.Context, exception settings.CalendarException) (settings.CalendarException, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO calendar_exceptions (date, kind, name, description, created_at)
		VALUES ($1::date, $2, $3, $4, NOW())
		RETURNING ` + exceptionColumns

	created, err := scanException(q.QueryRow(ctx, query, exception.Date, string(exception.Kind), exception.Name, exception.Description))
	if err != nil {
		if isUniqueViolation(err) {
			return settings.CalendarException{}, settings.ErrCalendarExceptionExists
		}
		return settings.CalendarException{}, classify(fmt.Errorf("failed to create calendar exception: %w", err))
	}

	return created, nil
}

// DeleteException implements settings.SettingsRepository.
func (r *settingsRepository) DeleteException(ctx context.Context, date string) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `DELETE FROM calendar_exceptions WHERE date = $1::date`, date)
	if err != nil {
		return classify(fmt.Errorf("failed to delete calendar exception: %w", err))
	}
	if commandTag.RowsAffected() == 0 {
		return settings.ErrCalendarExceptionNotFound
	}

	return nil
}

func NewSettingsRepository(db *database.DB) settings.SettingsRepository {
	return &settingsRepository{db: db}
}
