package db

import (
	"errors"

	"github.com/jackc/pgconn"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned on a unique-key violation, so callers
	// can distinguish a code/id collision from other storage failures.
	ErrAlreadyExists = errors.New("record already exists")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
