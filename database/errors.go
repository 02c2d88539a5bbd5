/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoTableErr
	ExistTableErr
	ExistIndexErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	DeadlockErr
	LockTimeoutErr
	SerializationErr
	ConnectionErr
	BusyErr
)

func (e SQLError) String() string {
	switch e {
	case NoRowsErr:
		return "no_rows"
	case NoTableErr:
		return "no_table"
	case ExistTableErr:
		return "exist_table"
	case ExistIndexErr:
		return "exist_index"
	case DuplicateKeyErr:
		return "duplicate_key"
	case NotNullViolationErr:
		return "not_null_violation"
	case ForeignKeyViolationErr:
		return "foreign_key_violation"
	case DeadlockErr:
		return "deadlock"
	case LockTimeoutErr:
		return "lock_timeout"
	case SerializationErr:
		return "serialization"
	case ConnectionErr:
		return "connection"
	case BusyErr:
		return "busy"
	default:
		return "unknown"
	}
}

// postgres SQLSTATE codes shared by lib/pq and pgx.
var pgStates = map[string]SQLError{
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"40P01": DeadlockErr,
	"55P03": LockTimeoutErr,
	"40001": SerializationErr,
	"08000": ConnectionErr,
	"08003": ConnectionErr,
	"08006": ConnectionErr,
	"57P01": ConnectionErr,
}

// IsSqlError classifies err. The first return reports whether err came from
// the database at all.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true, ConnectionErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1146:
			return true, NoTableErr
		case 1050:
			return true, ExistTableErr
		case 1061:
			return true, ExistIndexErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return true, ForeignKeyViolationErr
		case 1213:
			return true, DeadlockErr
		case 1205:
			return true, LockTimeoutErr
		case 2006, 2013:
			return true, ConnectionErr
		default:
			return true, UnknownErr
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if k, ok := pgStates[string(pqErr.Code)]; ok {
			return true, k
		}
		return true, UnknownErr
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if k, ok := pgStates[pgErr.Code]; ok {
			return true, k
		}
		return true, UnknownErr
	}

	// sqlite reports through plain error strings
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "database is locked"),
		strings.Contains(s, "sqlite_busy"),
		strings.Contains(s, "database table is locked"),
		strings.Contains(s, "sqlite_locked"):
		return true, BusyErr
	case strings.Contains(s, "no such table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "index"):
		return true, ExistIndexErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "table"):
		return true, ExistTableErr
	case strings.Contains(s, "unique constraint failed"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not null constraint failed"):
		return true, NotNullViolationErr
	case strings.Contains(s, "foreign key constraint failed"):
		return true, ForeignKeyViolationErr
	}
	return false, UnknownErr
}

// IsTransient reports whether retrying the statement that produced err may
// succeed. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	_, kind := IsSqlError(err)
	switch kind {
	case DeadlockErr, LockTimeoutErr, SerializationErr, ConnectionErr, BusyErr:
		return true
	}
	return false
}

// ErrorType is the metric label for err.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	_, kind := IsSqlError(err)
	return kind.String()
}
