package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no rows", wrapError("select", TableBookings, pgx.ErrNoRows), "No data found"},
		{"unique", wrapError("insert", TableUsers, &pgconn.PgError{Code: "23505", Message: "duplicate key"}), "This record already exists"},
		{"permission", wrapError("update", TableBookings, &pgconn.PgError{Code: "42501", Message: "denied"}), "Permission denied"},
		{"other pg code keeps message", wrapError("insert", TableBookings, &pgconn.PgError{Code: "23514", Message: "violates check constraint"}), "violates check constraint"},
		{"auth error", fmt.Errorf("signin: %w", ErrInvalidCredentials), "Invalid login credentials"},
		{"plain error", errors.New("connection refused"), "connection refused"},
		{"empty query error", &QueryError{}, "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Translate(tt.err))
		})
	}
}

func TestWrapErrorKeepsSentinels(t *testing.T) {
	err := wrapError("select", TableBookings, pgx.ErrNoRows)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsCode(err, CodeNoRows))

	pgErr := &pgconn.PgError{Code: CodeUniqueViolation, Message: "dup"}
	err = wrapError("insert", TableUsers, pgErr)
	assert.True(t, errors.Is(err, pgErr))
	assert.Contains(t, err.Error(), "insert users")

	badID := &pgconn.PgError{Code: CodeInvalidText, Message: "invalid input syntax for type uuid"}
	assert.True(t, errors.Is(wrapError("update", TableBookings, badID), ErrNotFound))
	assert.False(t, errors.Is(wrapError("insert", TableBookings, badID), ErrNotFound))

	assert.Same(t, err, wrapError("again", TableUsers, err))
	assert.Nil(t, wrapError("noop", TableUsers, nil))
}
