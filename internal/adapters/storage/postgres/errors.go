package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"pet-adoption/internal/platform/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation      = "23505"
	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrLockNotAvailable     = "55P03"
	pgErrCannotConnectNow     = "57P03"
	pgErrAdminShutdown        = "57P01"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// dbErr traduce errores del driver a apperr. Los de conexión, timeouts y
// contención quedan como Unavailable; el resto como Internal.
func dbErr(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, "duplicate record", err)
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable,
			pgErrCannotConnectNow, pgErrAdminShutdown:
			return apperr.Unavailable(err)
		}
		return apperr.Internal(err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err):
		return apperr.Unavailable(err)
	}
	return apperr.Internal(err)
}
