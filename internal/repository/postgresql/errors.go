package postgresql

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// transientSQLState reports whether a server error means "try again later" rather than a bug.
func transientSQLState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"): // connection exception
		return true
	case strings.HasPrefix(code, "53"): // insufficient resources
		return true
	case code == "57014", code == "57P01", code == "57P02", code == "57P03": // canceled, shutdown
		return true
	case code == "40001", code == "40P01": // serialization failure, deadlock
		return true
	}
	return false
}

// classify maps timeouts and connectivity failures to ErrStorageUnavailable, keeping the cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, attendance.ErrStorageUnavailable) {
		return err
	}

	unavailable := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		pgconn.Timeout(err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && transientSQLState(pgErr.Code) {
		unavailable = true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		unavailable = true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		unavailable = true
	}

	if unavailable {
		return fmt.Errorf("%w: %v", attendance.ErrStorageUnavailable, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
