package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	sql, args, err := buildSelect(TableBookings,
		Where(Eq("service_id", "svc-1"), Eq("branch_id", "br-1"), Eq("preferred_date", "2026-10-20"),
			In("status", "pending", "confirmed", "in_progress")),
		Desc("created_at"), 10)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT to_jsonb(t) FROM "bookings" AS t WHERE "t"."service_id" = $1 AND "t"."branch_id" = $2 AND "t"."preferred_date" = $3 AND "t"."status"::text = ANY($4) ORDER BY "t"."created_at" DESC LIMIT 10`,
		sql)
	assert.Equal(t, []any{"svc-1", "br-1", "2026-10-20", []string{"pending", "confirmed", "in_progress"}}, args)
}

func TestBuildSelectMultipleOrderTerms(t *testing.T) {
	sql, args, err := buildSelect(TableServices, Where(Eq("is_active", true)), Asc("sort_order").ThenAsc("name"), 0)
	require.NoError(t, err)
	assert.Equal(t, `SELECT to_jsonb(t) FROM "services" AS t WHERE "t"."is_active" = $1 ORDER BY "t"."sort_order" ASC, "t"."name" ASC`, sql)
	assert.Equal(t, []any{true}, args)
}

func TestBuildSelectRejectsUnknownIdentifiers(t *testing.T) {
	_, _, err := buildSelect("pg_shadow", nil, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTable))

	_, _, err = buildSelect(TableBookings, Where(Eq(`status" OR 1=1 --`, "x")), nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	_, _, err = buildSelect(TableBookings, nil, Desc("password_hash"), 0)
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestBuildInsertSortsColumns(t *testing.T) {
	sql, args, err := buildInsert(TableContactMessages, Row{"name": "Ana", "email": "ana@example.com", "message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "contact_messages" AS t ("email", "message", "name") VALUES ($1, $2, $3) RETURNING to_jsonb(t)`, sql)
	assert.Equal(t, []any{"ana@example.com", "hi", "Ana"}, args)

	_, _, err = buildInsert(TableContactMessages, Row{})
	assert.Error(t, err)
}

func TestBuildUpdateIgnoresID(t *testing.T) {
	patch := Row{"status": "confirmed", "id": "other"}
	sql, args, err := buildUpdate(TableBookings, "b-1", patch)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "bookings" AS t SET "status" = $1 WHERE "t"."id" = $2 RETURNING to_jsonb(t)`, sql)
	assert.Equal(t, []any{"confirmed", "b-1"}, args)
	assert.Contains(t, patch, "id", "caller patch must not be mutated")
}

func TestBuildCountAndSearch(t *testing.T) {
	sql, args, err := buildCount(TableUsers, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "users" AS t`, sql)
	assert.Empty(t, args)

	sql, args, err = buildSearch(TableBlogPosts, "title", "spring detailing", 5)
	require.NoError(t, err)
	assert.Equal(t, `SELECT to_jsonb(t) FROM "blog_posts" AS t WHERE to_tsvector('simple', coalesce("t"."title", '')) @@ plainto_tsquery('simple', $1) LIMIT 5`, sql)
	assert.Equal(t, []any{"spring detailing"}, args)
}

func TestRowDecode(t *testing.T) {
	type booking struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	rows := []Row{{"id": "b-1", "status": "pending"}, {"id": "b-2", "status": "confirmed"}}
	out, err := DecodeRows[booking](rows)
	require.NoError(t, err)
	assert.Equal(t, []booking{{"b-1", "pending"}, {"b-2", "confirmed"}}, out)
	assert.Equal(t, "b-1", rows[0].String("id"))
	assert.Equal(t, "", rows[0].String("missing"))
}
