package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	a.id, a.user_id, a.user_name, a.date::text, a.status,
	a.check_in_time, a.check_out_time, a.late_minutes, a.late_reason, a.device_id,
	a.check_in_latitude, a.check_in_longitude, a.check_in_distance_meters,
	a.check_out_latitude, a.check_out_longitude, a.check_out_distance_meters,
	a.created_at, a.updated_at`

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var (
		att                    attendance.Attendance
		inLat, inLng, inDist   *float64
		outLat, outLng, outDst *float64
	)
	err := row.Scan(
		&att.ID, &att.UserID, &att.UserName, &att.Date, &att.Status,
		&att.CheckInTime, &att.CheckOutTime, &att.LateMinutes, &att.LateReason, &att.DeviceID,
		&inLat, &inLng, &inDist,
		&outLat, &outLng, &outDst,
		&att.CreatedAt, &att.UpdatedAt,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}
	if inLat != nil && inLng != nil {
		att.CheckInLocation = &attendance.Location{Latitude: *inLat, Longitude: *inLng}
		if inDist != nil {
			att.CheckInLocation.DistanceMeters = *inDist
		}
	}
	if outLat != nil && outLng != nil {
		att.CheckOutLocation = &attendance.Location{Latitude: *outLat, Longitude: *outLng}
		if outDst != nil {
			att.CheckOutLocation.DistanceMeters = *outDst
		}
	}
	return att, nil
}

// InsertCheckIn implements attendance.AttendanceRepository.
// A single statement either creates the row, fills an Absent placeholder, or does nothing when
// a check-in already exists. The unique (user_id, date) index arbitrates concurrent callers.
func (a *attendanceRepository) InsertCheckIn(ctx context.Context, record attendance.Attendance) (attendance.Attendance, bool, error) {
	ctx, cancel := a.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, a.db)

	var inLat, inLng, inDist *float64
	if record.CheckInLocation != nil {
		inLat, inLng, inDist = &record.CheckInLocation.Latitude, &record.CheckInLocation.Longitude, &record.CheckInLocation.DistanceMeters
	}

	query := `
		INSERT INTO attendances AS a (
			id, user_id, user_name, date, status,
			check_in_time, late_minutes, late_reason, device_id,
			check_in_latitude, check_in_longitude, check_in_distance_meters,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (user_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			check_in_time = EXCLUDED.check_in_time,
			late_minutes = EXCLUDED.late_minutes,
			late_reason = EXCLUDED.late_reason,
			device_id = EXCLUDED.device_id,
			check_in_latitude = EXCLUDED.check_in_latitude,
			check_in_longitude = EXCLUDED.check_in_longitude,
			check_in_distance_meters = EXCLUDED.check_in_distance_meters,
			user_name = COALESCE(EXCLUDED.user_name, a.user_name),
			updated_at = NOW()
		WHERE a.check_in_time IS NULL
		RETURNING ` + attendanceColumns

	created, err := scanAttendance(q.QueryRow(ctx, query,
		record.ID, record.UserID, record.UserName, record.Date, record.Status,
		record.CheckInTime, record.LateMinutes, record.LateReason, record.DeviceID,
		inLat, inLng, inDist,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, false, nil
		}
		return attendance.Attendance{}, false, classify(fmt.Errorf("failed to insert check-in: %w", err))
	}

	return created, true, nil
}

// RecordCheckOut implements attendance.AttendanceRepository.
func (a *attendanceRepository) RecordCheckOut(ctx context.Context, userID, date, deviceID string, checkOut attendance.CheckOutWrite) (attendance.Attendance, bool, error) {
	ctx, cancel := a.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances AS a SET
			check_out_time = $4,
			check_out_latitude = $5,
			check_out_longitude = $6,
			check_out_distance_meters = $7,
			updated_at = NOW()
		WHERE a.user_id = $1
		  AND a.date = $2::date
		  AND a.device_id = $3
		  AND a.check_in_time IS NOT NULL
		  AND a.check_out_time IS NULL
		RETURNING ` + attendanceColumns

	updated, err := scanAttendance(q.QueryRow(ctx, query,
		userID, date, deviceID,
		checkOut.Time, checkOut.Location.Latitude, checkOut.Location.Longitude, checkOut.Location.DistanceMeters,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, false, nil
		}
		return attendance.Attendance{}, false, classify(fmt.Errorf("failed to record check-out: %w", err))
	}

	return updated, true, nil
}

// GetByUserAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByUserAndDate(ctx context.Context, userID string, date string) (*attendance.Attendance, error) {
	ctx, cancel := a.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendances a
		WHERE a.user_id = $1 AND a.date = $2::date`

	att, err := scanAttendance(q.QueryRow(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to get attendance: %w", err))
	}

	return &att, nil
}

func (a *attendanceRepository) queryList(ctx context.Context, baseWhere string, args []interface{}, orderBy string, limit, page int) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	countQuery := `SELECT COUNT(*) FROM attendances a WHERE ` + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("failed to count attendances: %w", err))
	}

	argIdx := len(args) + 1
	selectQuery := fmt.Sprintf(`SELECT %s
		FROM attendances a
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, attendanceColumns, baseWhere, orderBy, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to query attendances: %w", err))
	}
	defer rows.Close()

	attendances := make([]attendance.Attendance, 0)
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, classify(fmt.Errorf("failed to scan attendance: %w", err))
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(fmt.Errorf("failed to iterate attendances: %w", err))
	}

	return attendances, total, nil
}

// ListByUser implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByUser(ctx context.Context, userID string, filter attendance.HistoryFilter) ([]attendance.Attendance, int64, error) {
	ctx, cancel := a.db.WithTimeout(ctx)
	defer cancel()

	baseWhere := "a.user_id = $1"
	args := []interface{}{userID}
	argIdx := 2

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
	}

	return a.queryList(ctx, baseWhere, args, "a.date DESC", filter.Limit, filter.Page)
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	ctx, cancel := a.db.WithTimeout(ctx)
	defer cancel()

	// Build WHERE clause
	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil && *filter.UserID != "" {
		baseWhere += fmt.Sprintf(" AND a.user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}

	if filter.Date != nil && *filter.Date != "" {
		baseWhere += fmt.Sprintf(" AND a.date = $%d::date", argIdx)
		args = append(args, *filter.Date)
		argIdx++
	}

	// Date range filters
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	// Status filter
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, *filter.Status)
	}

	// Build ORDER BY
	orderByField := "a.date"
	switch filter.SortBy {
	case "user_name":
		orderByField = "a.user_name"
	case "check_in_time":
		orderByField = "a.check_in_time"
	case "check_out_time":
		orderByField = "a.check_out_time"
	case "status":
		orderByField = "a.status"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	return a.queryList(ctx, baseWhere, args, fmt.Sprintf("%s %s, a.user_id", orderByField, sortOrder), filter.Limit, filter.Page)
}

// DeleteBefore implements attendance.AttendanceRepository.
func (a *attendanceRepository) DeleteBefore(ctx context.Context, cutoff string, limit int) (int64, error) {
	ctx, cancel := a.db.WithTimeout(ctx)
	defer cancel()
	q := GetQuerier(ctx, a.db)

	query := `
		DELETE FROM attendances
		WHERE id IN (
			SELECT id FROM attendances
			WHERE date < $1::date
			ORDER BY date
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`

	commandTag, err := q.Exec(ctx, query, cutoff, limit)
	if err != nil {
		return 0, classify(fmt.Errorf("failed to delete attendances before %s: %w", cutoff, err))
	}

	return commandTag.RowsAffected(), nil
}

// BulkCreateAbsences implements attendance.AttendanceRepository.
// The whole day is written in one transaction so a failed pass leaves nothing half-marked.
func (a *attendanceRepository) BulkCreateAbsences(ctx context.Context, records []attendance.Attendance) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ctx, cancel := a.db.WithTimeout(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO attendances (id, user_id, user_name, date, status, late_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, $4::date, $5, 0, NOW(), NOW())
			ON CONFLICT (user_id, date) DO NOTHING`,
			rec.ID, rec.UserID, rec.UserName, rec.Date, attendance.StatusAbsent,
		)
	}

	var inserted int64
	send := func(txCtx context.Context) error {
		tx, ok := GetQuerier(txCtx, a.db).(pgx.Tx)
		if !ok {
			return fmt.Errorf("absences must be written inside a transaction")
		}
		results := tx.SendBatch(txCtx, batch)
		defer results.Close()

		for range records {
			tag, err := results.Exec()
			if err != nil {
				return classify(fmt.Errorf("failed to insert absence: %w", err))
			}
			inserted += tag.RowsAffected()
		}
		return nil
	}

	if inTransaction(ctx) {
		err := send(ctx)
		return inserted, err
	}
	if err := WithTransaction(ctx, a.db, send); err != nil {
		return 0, err
	}
	return inserted, nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
