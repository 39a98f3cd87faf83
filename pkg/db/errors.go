package db

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var (
	pgKeyDetail          = regexp.MustCompile(`Key \(([^)]+)\)=`)
	sqliteUniqueText     = "UNIQUE constraint failed: "
	sqliteForeignKeyText = "FOREIGN KEY constraint failed"
)

// IsUniqueViolation reports whether the provided error is a unique violation
// raised by Postgres or SQLite. When constraintName is provided, the helper
// also requires the constraint (or column) name to appear in the error.
func IsUniqueViolation(err error, constraintName string) bool {
	field, ok := UniqueViolationField(err)
	if !ok {
		return false
	}
	if constraintName == "" {
		return true
	}
	return field == constraintName || strings.Contains(err.Error(), constraintName)
}

// UniqueViolationField extracts the column that caused a unique violation.
// The boolean is false when err is not a unique violation at all.
func UniqueViolationField(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if field, code, ok := postgresViolation(err); ok {
		if code != pgUniqueViolation {
			return "", false
		}
		return field, true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}

	msg := err.Error()
	if idx := strings.Index(msg, sqliteUniqueText); idx >= 0 {
		cols := strings.TrimSpace(msg[idx+len(sqliteUniqueText):])
		first := strings.Split(cols, ",")[0]
		if dot := strings.LastIndex(first, "."); dot >= 0 {
			first = first[dot+1:]
		}
		return strings.TrimSpace(first), true
	}
	if strings.Contains(msg, "duplicate key value") {
		if m := pgKeyDetail.FindStringSubmatch(msg); len(m) == 2 {
			return m[1], true
		}
		return "", true
	}
	return "", false
}

// ForeignKeyViolationField reports a write that referenced a missing row,
// returning the referencing column when the driver names it. SQLite never
// does, so its field is empty.
func ForeignKeyViolationField(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if field, code, ok := postgresViolation(err); ok {
		if code != pgForeignKeyViolation {
			return "", false
		}
		return field, true
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return "", true
	}
	if strings.Contains(err.Error(), sqliteForeignKeyText) {
		return "", true
	}
	return "", false
}

// postgresViolation unwraps a pgx or lib/pq error into its column and SQLSTATE.
func postgresViolation(err error) (string, string, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgField(pgxErr.Detail, pgxErr.ConstraintName), pgxErr.Code, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgField(pqErr.Detail, pqErr.Constraint), string(pqErr.Code), true
	}
	return "", "", false
}

func pgField(detail, constraint string) string {
	if m := pgKeyDetail.FindStringSubmatch(detail); len(m) == 2 {
		return m[1]
	}
	// gorm names unique indexes idx_<table>_<column>.
	if strings.HasPrefix(constraint, "idx_") {
		parts := strings.SplitN(strings.TrimPrefix(constraint, "idx_"), "_", 2)
		if len(parts) == 2 {
			return parts[1]
		}
	}
	return constraint
}
