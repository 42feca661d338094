package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation reports whether err is a PostgreSQL unique violation
// (SQLSTATE 23505), optionally on a specific constraint.
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// duplicateKeyValue extracts the conflicting value from a unique-violation
// detail line like `Key (seamless_transaction_id)=(T1) already exists.`.
func duplicateKeyValue(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	detail := pgErr.Detail
	open := strings.Index(detail, ")=(")
	if open < 0 {
		return ""
	}
	rest := detail[open+3:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return ""
	}
	return rest[:end]
}
