package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/internal/visitor"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

const (
	msgProductNotFound = "Product not found"
	msgOutOfStock      = "This product is out of stock"
	msgStockLimit      = "Cannot add more items. Stock limit reached."
	msgAddFailed       = "Error adding product to cart"
	msgCartCleared     = "Cart cleared"
)

// Handler serves the catalog and shopping list endpoints.
type Handler struct {
	browser *Browser
	logger  *logging.Logger
}

func NewHandler(browser *Browser, logger *logging.Logger) *Handler {
	if browser == nil {
		panic("catalog: browser required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{browser: browser, logger: logger}
}

// Routes mounts GET /catalog and GET /catalog/products/{id}.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/products/{productID}", h.Detail)
}

// CartRoutes mounts the shopping list endpoints.
func (h *Handler) CartRoutes(r chi.Router) {
	r.Get("/", h.GetCart)
	r.Post("/items", h.AddItem)
	r.Delete("/", h.ClearCart)
}

// ProductCard is a product tile in the listing.
type ProductCard struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Excerpt         string  `json:"excerpt"`
	Image           string  `json:"image"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	PriceLabel      string  `json:"price_label"`
	ComparePrice    string  `json:"compare_price_label,omitempty"`
	DiscountPercent int     `json:"discount_percent,omitempty"`
	OnSale          bool    `json:"on_sale"`
	Featured        bool    `json:"featured"`
	StockQuantity   int     `json:"stock_quantity"`
	LowStock        bool    `json:"low_stock"`
	OutOfStock      bool    `json:"out_of_stock"`
}

// ProductDetail is the product modal.
type ProductDetail struct {
	ProductCard
	Description    string         `json:"description"`
	GalleryImages  []string       `json:"gallery_images"`
	Specifications map[string]any `json:"specifications,omitempty"`
	SKU            string         `json:"sku,omitempty"`
	MaxQuantity    int            `json:"max_quantity"`
}

// Listing is the response of GET /catalog.
type Listing struct {
	Categories []Category    `json:"categories"`
	Products   []ProductCard `json:"products"`
	Count      int           `json:"count"`
	Sort       string        `json:"sort"`
	CartCount  int           `json:"cart_count"`
}

// CartView is the shopping list response.
type CartView struct {
	Items  Cart            `json:"items"`
	Count  int             `json:"count"`
	Total  float64         `json:"total"`
	Notice *respond.Notice `json:"notice,omitempty"`
}

func card(snap *Snapshot, p Product) ProductCard {
	c := ProductCard{
		ID:              p.ID,
		Name:            p.Name,
		Excerpt:         p.Excerpt(),
		Image:           p.Image(),
		Category:        defaultCategory,
		Price:           p.Price,
		PriceLabel:      FormatPrice(p.Price),
		DiscountPercent: p.DiscountPercent(),
		OnSale:          p.OnSale(),
		Featured:        p.IsFeatured,
		StockQuantity:   p.StockQuantity,
		LowStock:        p.LowStock(),
		OutOfStock:      p.OutOfStock(),
	}
	if cat, ok := snap.Category(p); ok {
		c.Category = cat.Name
	}
	if p.OnSale() {
		c.ComparePrice = FormatPrice(*p.ComparePrice)
	}
	return c
}

func newCartView(c Cart, notice *respond.Notice) CartView {
	if c == nil {
		c = Cart{}
	}
	return CartView{Items: c, Count: c.Count(), Total: c.Total(), Notice: notice}
}

// List handles GET /catalog?category=&price=&q=&sort=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	price, err := ParsePriceRange(q.Get("price"))
	if err != nil {
		respond.BadRequest(w, "Invalid price range", respond.DismissBrowser)
		return
	}
	f := Filter{CategoryID: q.Get("category"), Price: price, Search: q.Get("q"), Sort: q.Get("sort")}
	snap, products, err := h.browser.List(r.Context(), f)
	if errors.Is(err, ErrUnknownSort) {
		respond.BadRequest(w, "Unknown sort order", respond.DismissBrowser)
		return
	}
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}

	out := Listing{Categories: snap.Categories, Products: make([]ProductCard, 0, len(products)), Count: len(products), Sort: f.Sort}
	if out.Sort == "" {
		out.Sort = SortName
	}
	if out.Categories == nil {
		out.Categories = []Category{}
	}
	for _, p := range products {
		out.Products = append(out.Products, card(snap, p))
	}
	if visitorID, ok := visitor.IDFromContext(r.Context()); ok {
		if c, err := h.browser.Cart(r.Context(), visitorID); err == nil {
			out.CartCount = c.Count()
		} else {
			h.logger.Warn("failed to load cart count", "error", err)
		}
	}
	respond.JSON(w, http.StatusOK, out)
}

// Detail handles GET /catalog/products/{productID}
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	snap, p, err := h.browser.Product(r.Context(), chi.URLParam(r, "productID"))
	if errors.Is(err, ErrProductNotFound) {
		respond.Notify(w, http.StatusNotFound, respond.LevelError, msgProductNotFound, respond.DismissBrowser)
		return
	}
	if err != nil {
		h.logger.Error("failed to load product", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	d := ProductDetail{
		ProductCard:    card(snap, p),
		Description:    p.Description,
		GalleryImages:  p.GalleryImages,
		Specifications: p.Specifications,
		SKU:            p.SKU,
		MaxQuantity:    max(p.StockQuantity, 0),
	}
	if d.Description == "" {
		d.Description = p.ShortDescription
	}
	if d.GalleryImages == nil {
		d.GalleryImages = []string{}
	}
	respond.JSON(w, http.StatusOK, d)
}

// GetCart handles GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := visitor.IDFromContext(r.Context())
	if !ok {
		respond.BadRequest(w, "Missing visitor id", respond.DismissBrowser)
		return
	}
	c, err := h.browser.Cart(r.Context(), visitorID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	respond.JSON(w, http.StatusOK, newCartView(c, nil))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

// AddItem handles POST /cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := visitor.IDFromContext(r.Context())
	if !ok {
		respond.BadRequest(w, "Missing visitor id", respond.DismissBrowser)
		return
	}
	var req addItemRequest
	if err := respond.DecodeJSON(r, &req); err != nil || req.ProductID == "" {
		respond.BadRequest(w, "Invalid request body", respond.DismissBrowser)
		return
	}

	c, p, err := h.browser.AddToCart(r.Context(), visitorID, req.ProductID)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, newCartView(c,
			respond.NewNotice(respond.LevelSuccess, p.Name+" added to cart!", respond.DismissBrowser)))
	case errors.Is(err, ErrStockLimit):
		respond.JSON(w, http.StatusOK, newCartView(c,
			respond.NewNotice(respond.LevelWarning, msgStockLimit, respond.DismissBrowser)))
	case errors.Is(err, ErrProductNotFound):
		respond.Notify(w, http.StatusNotFound, respond.LevelError, msgProductNotFound, respond.DismissBrowser)
	case errors.Is(err, ErrOutOfStock):
		respond.Notify(w, http.StatusConflict, respond.LevelError, msgOutOfStock, respond.DismissBrowser)
	default:
		respond.Notify(w, http.StatusInternalServerError, respond.LevelError, msgAddFailed, respond.DismissBrowser)
	}
}

// ClearCart handles DELETE /cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := visitor.IDFromContext(r.Context())
	if !ok {
		respond.BadRequest(w, "Missing visitor id", respond.DismissBrowser)
		return
	}
	if err := h.browser.ClearCart(r.Context(), visitorID); err != nil {
		h.logger.Error("failed to clear cart", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	respond.JSON(w, http.StatusOK, newCartView(nil,
		respond.NewNotice(respond.LevelInfo, msgCartCleared, respond.DismissBrowser)))
}
