package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/internal/visitor"
)

type catalogHarness struct {
	t      *testing.T
	carts  *MemoryCartStore
	router chi.Router
}

func newCatalogHarness(t *testing.T) *catalogHarness {
	t.Helper()
	carts := NewMemoryCartStore()
	browser := NewBrowser(NewCatalog(gateway.NewClient(seededCatalogStore(nil)), 0, nil), carts, nil, nil)
	h := NewHandler(browser, nil)

	r := chi.NewRouter()
	r.Route("/catalog", h.Routes)
	r.Route("/cart", h.CartRoutes)
	return &catalogHarness{t: t, carts: carts, router: r}
}

func (h *catalogHarness) do(method, path, body string, out any) int {
	h.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(visitor.WithID(req.Context(), "visitor-1"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestListCatalog(t *testing.T) {
	h := newCatalogHarness(t)

	var listing Listing
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/catalog", "", &listing))
	assert.Equal(t, 3, listing.Count)
	assert.Equal(t, "name", listing.Sort)
	require.Len(t, listing.Products, 3)
	assert.Equal(t, "Brush Set", listing.Products[0].Name)
	assert.Equal(t, "Horsehair brushes", listing.Products[0].Excerpt)

	polish := listing.Products[2]
	assert.Equal(t, "Shoe Polish", polish.Name)
	assert.Equal(t, "Shoe Care", polish.Category)
	assert.Equal(t, "₱120.00", polish.PriceLabel)
	assert.Equal(t, "₱150.00", polish.ComparePrice)
	assert.Equal(t, 20, polish.DiscountPercent)
	assert.True(t, polish.LowStock)
	assert.Equal(t, placeholderImage, polish.Image)

	insoles := listing.Products[1]
	assert.Equal(t, "Product", insoles.Category)
	assert.True(t, insoles.OutOfStock)
}

func TestListCatalogFilters(t *testing.T) {
	h := newCatalogHarness(t)

	var listing Listing
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/catalog?category=care&price=100-300&sort=price_desc", "", &listing))
	require.Len(t, listing.Products, 2)
	assert.Equal(t, "Brush Set", listing.Products[0].Name)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/catalog?q=FOAM", "", &listing))
	require.Len(t, listing.Products, 1)
	assert.Equal(t, "Insoles", listing.Products[0].Name)

	var env respond.Envelope
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/catalog?price=cheap", "", &env))
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/catalog?sort=rating", "", &env))
}

func TestProductDetail(t *testing.T) {
	h := newCatalogHarness(t)

	var d ProductDetail
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/catalog/products/p2", "", &d))
	assert.Equal(t, "Horsehair brushes", d.Description)
	assert.Equal(t, []string{"/b1.png", "/b2.png"}, d.GalleryImages)
	assert.Equal(t, "horsehair", d.Specifications["bristle"])
	assert.Equal(t, "BR-1", d.SKU)
	assert.Equal(t, 20, d.MaxQuantity)
	assert.True(t, d.Featured)

	var env respond.Envelope
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/catalog/products/p4", "", &env))
	assert.Equal(t, "Product not found", env.Notice.Message)
}

func TestAddToCartFlow(t *testing.T) {
	h := newCatalogHarness(t)

	var view CartView
	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/cart/items", `{"productId":"p1"}`, &view))
	}
	assert.Equal(t, respond.LevelSuccess, view.Notice.Level)
	assert.Equal(t, "Shoe Polish added to cart!", view.Notice.Message)
	assert.Equal(t, 4, view.Count)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/cart/items", `{"productId":"p1"}`, &view))
	assert.Equal(t, respond.LevelWarning, view.Notice.Level)
	assert.Equal(t, "Cannot add more items. Stock limit reached.", view.Notice.Message)
	assert.Equal(t, 4, view.Items[0].Quantity)

	var env respond.Envelope
	require.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/cart/items", `{"productId":"p3"}`, &env))
	assert.Equal(t, "This product is out of stock", env.Notice.Message)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/cart/items", `{"productId":"nope"}`, &env))

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/cart", "", &view))
	assert.Equal(t, 4, view.Count)
	assert.Equal(t, 480.0, view.Total)

	var listing Listing
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/catalog", "", &listing))
	assert.Equal(t, 4, listing.CartCount)

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/cart", "", &view))
	assert.Empty(t, view.Items)

	stored, err := h.carts.Load(t.Context(), "visitor-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
