package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors surfaced to services so retry logic can distinguish
// recoverable uniqueness conflicts from hard storage failures.
var (
	// ErrDuplicateStudentCode signals the UNIQUE(student_code) constraint
	// fired on submission insert. The submit path retries with a fresh
	// code suffix on exactly this error.
	ErrDuplicateStudentCode = errors.New("duplicate student code")

	// ErrDuplicateAccessCode signals the UNIQUE(code) constraint fired on
	// access code insert. The issuer regenerates and retries.
	ErrDuplicateAccessCode = errors.New("duplicate access code")
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
