package content

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
)

func newContentRouter(store *gateway.MemoryStore) chi.Router {
	h := NewHandler(NewReader(gateway.NewClient(store)), nil)
	r := chi.NewRouter()
	r.Route("/content", h.Routes)
	return r
}

func get(t *testing.T, r chi.Router, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestContentEndpoints(t *testing.T) {
	r := newContentRouter(seededContentStore())

	var services []ServiceCard
	require.Equal(t, http.StatusOK, get(t, r, "/content/services", &services))
	assert.Len(t, services, 2)

	var gallery []GalleryItem
	require.Equal(t, http.StatusOK, get(t, r, "/content/gallery?limit=5", &gallery))
	assert.Len(t, gallery, 5)

	var posts []BlogPost
	require.Equal(t, http.StatusOK, get(t, r, "/content/blog/search?q=pressure", &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "pressure", posts[0].Slug)
}

func TestContentEmptyListsAreArrays(t *testing.T) {
	r := newContentRouter(gateway.NewMemoryStore(nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/testimonials", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestContentSearchRequiresTerm(t *testing.T) {
	r := newContentRouter(seededContentStore())

	var env respond.Envelope
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/content/blog/search", &env))
	assert.Equal(t, "Please enter a search term", env.Notice.Message)
}

func TestContentGatewayFailure(t *testing.T) {
	store := seededContentStore()
	store.FailNext(gateway.TableBranches, "select", &gateway.QueryError{Code: gateway.CodeInsufficientPrivilege, Message: "denied"})
	r := newContentRouter(store)

	var env respond.Envelope
	assert.Equal(t, http.StatusForbidden, get(t, r, "/content/branches", &env))
	assert.Equal(t, "Permission denied", env.Notice.Message)
}
