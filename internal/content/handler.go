package content

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// Handler serves the public content endpoints.
type Handler struct {
	reader *Reader
	logger *logging.Logger
}

func NewHandler(reader *Reader, logger *logging.Logger) *Handler {
	if reader == nil {
		panic("content: reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{reader: reader, logger: logger}
}

// Routes mounts the content endpoints under /content.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/services", h.Services)
	r.Get("/branches", h.Branches)
	r.Get("/gallery", h.Gallery)
	r.Get("/testimonials", h.Testimonials)
	r.Get("/blog", h.Blog)
	r.Get("/blog/search", h.SearchBlog)
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) write(w http.ResponseWriter, what string, v any, err error) {
	if err != nil {
		h.logger.Error("failed to load content", "content", what, "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

// Services handles GET /content/services
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	items, err := h.reader.Services(r.Context())
	h.write(w, "services", nonNil(items), err)
}

// Branches handles GET /content/branches
func (h *Handler) Branches(w http.ResponseWriter, r *http.Request) {
	items, err := h.reader.Branches(r.Context())
	h.write(w, "branches", nonNil(items), err)
}

// Gallery handles GET /content/gallery
func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	items, err := h.reader.Gallery(r.Context(), limitParam(r))
	h.write(w, "gallery", nonNil(items), err)
}

// Testimonials handles GET /content/testimonials
func (h *Handler) Testimonials(w http.ResponseWriter, r *http.Request) {
	items, err := h.reader.Testimonials(r.Context(), limitParam(r))
	h.write(w, "testimonials", nonNil(items), err)
}

// Blog handles GET /content/blog
func (h *Handler) Blog(w http.ResponseWriter, r *http.Request) {
	items, err := h.reader.BlogPosts(r.Context(), limitParam(r))
	h.write(w, "blog", nonNil(items), err)
}

// SearchBlog handles GET /content/blog/search?q=
func (h *Handler) SearchBlog(w http.ResponseWriter, r *http.Request) {
	items, err := h.reader.SearchBlog(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	if errors.Is(err, ErrEmptySearch) {
		respond.BadRequest(w, "Please enter a search term", respond.DismissBrowser)
		return
	}
	h.write(w, "blog search", nonNil(items), err)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
