package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements the row API and account storage on Postgres.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store over a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("gateway: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB allows injecting a mock database for testing.
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Query returns rows of table matching filters.
func (s *PostgresStore) Query(ctx context.Context, table string, filters FilterSet, order Ordering, limit int) ([]Row, error) {
	query, args, err := buildSelect(table, filters, order, limit)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, "select", table, query, args)
}

// Search runs a full-text match over one column.
func (s *PostgresStore) Search(ctx context.Context, table, column, term string, limit int) ([]Row, error) {
	query, args, err := buildSearch(table, column, term, limit)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, "search", table, query, args)
}

// Count returns the number of rows matching filters.
func (s *PostgresStore) Count(ctx context.Context, table string, filters FilterSet) (int64, error) {
	query, args, err := buildCount(table, filters)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapError("count", table, err)
	}
	return n, nil
}

// Insert writes one record and returns the stored row.
func (s *PostgresStore) Insert(ctx context.Context, table string, record Row) (Row, error) {
	query, args, err := buildInsert(table, record)
	if err != nil {
		return nil, err
	}
	return s.one(ctx, "insert", table, query, args)
}

// Update patches the row with the given id and returns it.
func (s *PostgresStore) Update(ctx context.Context, table, id string, patch Row) (Row, error) {
	query, args, err := buildUpdate(table, id, patch)
	if err != nil {
		return nil, err
	}
	return s.one(ctx, "update", table, query, args)
}

func (s *PostgresStore) collect(ctx context.Context, op, table, query string, args []any) ([]Row, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(op, table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, wrapError(op, table, err)
		}
		row, err := decodeRow(raw)
		if err != nil {
			return nil, wrapError(op, table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(op, table, err)
	}
	return out, nil
}

func (s *PostgresStore) one(ctx context.Context, op, table, query string, args []any) (Row, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		return nil, wrapError(op, table, err)
	}
	row, err := decodeRow(raw)
	if err != nil {
		return nil, wrapError(op, table, err)
	}
	return row, nil
}

func decodeRow(raw []byte) (Row, error) {
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

// Account is a new sign-up: credentials plus the initial profile.
type Account struct {
	Identity
	PasswordHash string
}

// credential is the stored login secret for one user.
type credential struct {
	UserID       string
	PasswordHash string
}

// CreateAccount stores the credential and profile rows atomically.
func (s *PostgresStore) CreateAccount(ctx context.Context, acct Account) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return wrapError("signup", "auth_users", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO auth_users (id, email, password_hash) VALUES ($1, $2, $3)`,
		acct.ID, acct.Email, acct.PasswordHash,
	); err != nil {
		return wrapError("signup", "auth_users", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO users (id, email, full_name, phone, role) VALUES ($1, $2, $3, $4, $5)`,
		acct.ID, acct.Email, acct.FullName, acct.Phone, string(acct.Role),
	); err != nil {
		return wrapError("signup", TableUsers, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapError("signup", TableUsers, err)
	}
	return nil
}

func (s *PostgresStore) credentialByEmail(ctx context.Context, email string) (credential, error) {
	var c credential
	err := s.db.QueryRow(ctx,
		`SELECT id::text, password_hash FROM auth_users WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email),
	).Scan(&c.UserID, &c.PasswordHash)
	if err != nil {
		return credential{}, wrapError("signin", "auth_users", err)
	}
	return c, nil
}

func (s *PostgresStore) setPasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE auth_users SET password_hash = $2 WHERE id = $1`, userID, hash)
	if err != nil {
		return wrapError("reset", "auth_users", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapError("reset", "auth_users", pgx.ErrNoRows)
	}
	return nil
}

const profileColumns = `id::text, email, coalesce(full_name, ''), coalesce(avatar_url, ''), coalesce(phone, ''), role, updated_at`

func scanIdentity(row pgx.Row) (*Identity, error) {
	var (
		id        Identity
		role      string
		updatedAt *time.Time
	)
	if err := row.Scan(&id.ID, &id.Email, &id.FullName, &id.AvatarURL, &id.Phone, &role, &updatedAt); err != nil {
		return nil, err
	}
	id.Role = Role(role)
	if updatedAt != nil {
		id.UpdatedAt = *updatedAt
	}
	return &id, nil
}

func (s *PostgresStore) profileByID(ctx context.Context, userID string) (*Identity, error) {
	id, err := scanIdentity(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, wrapError("profile", TableUsers, err)
	}
	return id, nil
}

func (s *PostgresStore) profileByEmail(ctx context.Context, email string) (*Identity, error) {
	id, err := scanIdentity(s.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
	if err != nil {
		return nil, wrapError("profile", TableUsers, err)
	}
	return id, nil
}

// upsertProfile writes the editable profile fields, creating the row when missing.
func (s *PostgresStore) upsertProfile(ctx context.Context, p *Identity, at time.Time) (*Identity, error) {
	id, err := scanIdentity(s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, avatar_url, phone, role, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		p.ID, p.Email, p.FullName, p.AvatarURL, p.Phone, string(p.Role), at,
	))
	if err != nil {
		return nil, wrapError("upsert", TableUsers, err)
	}
	return id, nil
}
