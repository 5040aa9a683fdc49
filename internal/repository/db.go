package repository

import (
	"errors"

	"github.com/lib/pq"
)

type scanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
