package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scmdesk/scmdesk/internal/shared"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeSerializationFailed = "40001"
)

// Translate maps driver errors onto the shared sentinel errors.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: unknown reference %s", shared.ErrValidation, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s", shared.ErrValidation, pgErr.ConstraintName)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsSerializationFailure reports whether err is a retryable serialization failure.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeSerializationFailed
}
