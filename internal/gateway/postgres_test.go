package gateway

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresStoreWithDB(mock), mock
}

func TestPostgresStore_Query(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT to_jsonb(t) FROM "bookings" AS t WHERE "t"."service_id" = $1 ORDER BY "t"."created_at" DESC LIMIT 2`)).
		WithArgs("svc-1").
		WillReturnRows(pgxmock.NewRows([]string{"to_jsonb"}).
			AddRow([]byte(`{"id":"b-2","preferred_time":"10:00"}`)).
			AddRow([]byte(`{"id":"b-1","preferred_time":"09:30"}`)))

	rows, err := store.Query(context.Background(), TableBookings, Where(Eq("service_id", "svc-1")), Desc("created_at"), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "10:00", rows[0].String("preferred_time"))
	assert.Equal(t, "b-1", rows[1].String("id"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryRejectsUnknownTableWithoutSQL(t *testing.T) {
	store, mock := newMockStore(t)
	_, err := store.Query(context.Background(), "auth_users", nil, nil, 0)
	assert.True(t, errors.Is(err, ErrUnknownTable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "contact_messages" AS t`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := store.Count(context.Background(), TableContactMessages, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users" AS t ("email", "id") VALUES ($1, $2) RETURNING to_jsonb(t)`)).
		WithArgs("a@example.com", "u-1").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := store.Insert(context.Background(), TableUsers, Row{"id": "u-1", "email": "a@example.com"})
	require.Error(t, err)
	assert.Equal(t, "This record already exists", Translate(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MalformedIDIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT to_jsonb(t) FROM "bookings" AS t WHERE "t"."id" = $1 LIMIT 1`)).
		WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "contact_messages" AS t SET "status" = $1 WHERE "t"."id" = $2 RETURNING to_jsonb(t)`)).
		WithArgs("replied", "abc").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})

	_, err := store.Query(context.Background(), TableBookings, Where(Eq("id", "abc")), nil, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "No data found", Translate(err))

	_, err = store.Update(context.Background(), TableContactMessages, "abc", Row{"status": "replied"})
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "bookings" AS t SET "status" = $1 WHERE "t"."id" = $2 RETURNING to_jsonb(t)`)).
		WithArgs("confirmed", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Update(context.Background(), TableBookings, "missing", Row{"status": "confirmed"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "No data found", Translate(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateReturnsRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "bookings" AS t SET "status" = $1 WHERE "t"."id" = $2 RETURNING to_jsonb(t)`)).
		WithArgs("cancelled", "b-1").
		WillReturnRows(pgxmock.NewRows([]string{"to_jsonb"}).AddRow([]byte(`{"id":"b-1","status":"cancelled"}`)))

	row, err := store.Update(context.Background(), TableBookings, "b-1", Row{"status": "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", row.String("status"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAccount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_users (id, email, password_hash) VALUES ($1, $2, $3)`)).
		WithArgs("u-1", "ana@example.com", "hash").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (id, email, full_name, phone, role) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs("u-1", "ana@example.com", "Ana Cruz", "", "customer").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.CreateAccount(context.Background(), Account{
		Identity:     Identity{ID: "u-1", Email: "ana@example.com", FullName: "Ana Cruz", Role: RoleCustomer},
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAccountDuplicateRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_users`)).
		WithArgs("u-1", "ana@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: CodeUniqueViolation, Message: "duplicate"})
	mock.ExpectRollback()

	err := store.CreateAccount(context.Background(), Account{
		Identity:     Identity{ID: "u-1", Email: "ana@example.com", Role: RoleCustomer},
		PasswordHash: "hash",
	})
	assert.True(t, IsCode(err, CodeUniqueViolation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ProfileByID(t *testing.T) {
	store, mock := newMockStore(t)
	updated := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id::text, email, .* FROM users WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "full_name", "avatar_url", "phone", "role", "updated_at"}).
			AddRow("u-1", "staff@example.com", "Sam", "", "", "staff", &updated))

	id, err := store.profileByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, id.Role)
	assert.Equal(t, updated, id.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
