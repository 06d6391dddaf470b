package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pqUniqueViolation is the postgres error code for unique constraint
// violations. Repositories surface it as ErrAlreadyExists so callers can
// treat it as the duplicate signal rather than doing a check-then-insert.
const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}
