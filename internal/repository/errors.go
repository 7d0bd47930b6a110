package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres unique_violation
const uniqueViolationCode = "23505"

// isUniqueViolationOn reports whether err is a unique-constraint
// conflict on the named constraint. The repositories lean on the
// primary-key constraint for idempotency: two racing inserts of the
// same id both pass the fast-path existence check, the database
// constraint decides the winner, and the loser treats the conflict as
// an already-done outcome. Only the primary key gets that treatment:
// a violation of any other constraint (the email uniqueness on users)
// means a genuinely different row was rejected and must surface as an
// error instead of a silent success.
func isUniqueViolationOn(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode && pqErr.Constraint == constraint
	}
	return false
}
