package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/quickie-platform/internal/gateway"
)

func TestErrorTranslatesGatewayFailures(t *testing.T) {
	store := gateway.NewMemoryStore(nil)
	_, notFound := store.Update(t.Context(), gateway.TableBookings, "missing", gateway.Row{"status": "confirmed"})
	require.Error(t, notFound)

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", notFound, http.StatusNotFound, "No data found"},
		{"duplicate", &gateway.QueryError{Code: gateway.CodeUniqueViolation}, http.StatusConflict, "This record already exists"},
		{"permission", &gateway.QueryError{Code: gateway.CodeInsufficientPrivilege}, http.StatusForbidden, "Permission denied"},
		{"auth", gateway.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid login credentials"},
		{"pg other", &gateway.QueryError{Code: "23514", Message: "check failed", Err: &pgconn.PgError{}}, http.StatusBadGateway, "check failed"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err, DismissForm)
			assert.Equal(t, tt.status, rec.Code)

			var env Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, LevelError, env.Notice.Level)
			assert.Equal(t, tt.msg, env.Notice.Message)
			assert.Equal(t, DismissForm, env.Notice.DismissAfterMs)
		})
	}
}

func TestFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	FieldErrors(rec, map[string]string{"email": "Please enter a valid email address"}, DismissForm)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"Please enter a valid email address"`)
}

func TestRedirectRemembersPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/overview?x=1", nil)
	rec := httptest.NewRecorder()
	Redirect(rec, req, "/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?redirect=%2Fadmin%2Foverview%3Fx%3D1", rec.Header().Get("Location"))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "Ana", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana","admin":true}`))
	assert.Error(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.EqualError(t, DecodeJSON(req, &dst), "request body is empty")
}
