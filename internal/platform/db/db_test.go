package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/scmdesk/scmdesk/internal/shared"
)

func TestTranslate(t *testing.T) {
	require.NoError(t, Translate(nil))
	require.ErrorIs(t, Translate(pgx.ErrNoRows), shared.ErrNotFound)
	require.ErrorIs(t, Translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), shared.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "vendors_vendor_code_key"}
	err := Translate(dup)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	require.Contains(t, err.Error(), "vendors_vendor_code_key")
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup)))

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "grr_parts_part_id_fkey"}
	require.ErrorIs(t, Translate(fk), shared.ErrValidation)

	other := errors.New("boom")
	require.Equal(t, other, Translate(other))
	require.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
}

func TestRetryDuplicate(t *testing.T) {
	calls := 0
	err := RetryDuplicate(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: grrs_grr_no_key", shared.ErrDuplicate)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	calls = 0
	err = RetryDuplicate(context.Background(), 2, func(context.Context) error {
		calls++
		return shared.ErrDuplicate
	})
	require.ErrorIs(t, err, shared.ErrDuplicate)
	require.Equal(t, 2, calls)

	calls = 0
	err = RetryDuplicate(context.Background(), 5, func(context.Context) error {
		calls++
		return shared.ErrValidation
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, 1, calls)
}
