package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes raised by the constraints in schema.sql.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
	codeFKViolation     = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool { return pgCode(err) == codeUniqueViolation }

func IsCheckViolation(err error) bool { return pgCode(err) == codeCheckViolation }

func IsForeignKeyViolation(err error) bool { return pgCode(err) == codeFKViolation }

// IsConstraintViolation reports whether err was raised by a unique or check
// constraint.
func IsConstraintViolation(err error) bool {
	return IsUniqueViolation(err) || IsCheckViolation(err)
}
