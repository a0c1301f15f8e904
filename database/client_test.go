package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsTransientConflict(t *testing.T) {
	assert.True(t, IsTransientConflict(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsTransientConflict(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})))
	assert.True(t, IsTransientConflict(ErrTransientConflict))
	assert.False(t, IsTransientConflict(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsTransientConflict(errors.New("boom")))
	assert.False(t, IsTransientConflict(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_user_profiles_username"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "idx_user_profiles_username"))
	assert.False(t, IsUniqueViolation(err, "idx_user_profiles_referral_code"))
	assert.False(t, IsUniqueViolation(errors.New("nope"), ""))
}

func TestRetryTransientRetriesOnlyConflicts(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), slog.Disabled, 4, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	domainErr := errors.New("tournament is full")
	err = retryTransient(context.Background(), slog.Disabled, 4, time.Millisecond, func() error {
		calls++
		return domainErr
	})
	assert.ErrorIs(t, err, domainErr)
	assert.Equal(t, 1, calls)
}

func TestRetryTransientGivesUp(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), slog.Disabled, 3, time.Millisecond, func() error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	assert.ErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, 3, calls)
}

func TestRetryTransientStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryTransient(ctx, slog.Disabled, 5, time.Second, func() error {
		return &pgconn.PgError{Code: "40001"}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnavailableClient(t *testing.T) {
	c := Unavailable(errors.New("DATABASE_URL not set"), slog.Disabled)
	assert.False(t, c.Available())

	db, ok := c.Reader(context.Background(), "ListGames")
	assert.False(t, ok)
	assert.Nil(t, db)

	_, err := c.Writer(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	called := false
	err = c.Transaction(context.Background(), func(tx *gorm.DB) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, called)

	assert.ErrorIs(t, c.Migrate(), ErrUnavailable)
	assert.NoError(t, c.Close())
}
