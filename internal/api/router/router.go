package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/quickie-platform/internal/admin"
	"github.com/wolfman30/quickie-platform/internal/booking"
	"github.com/wolfman30/quickie-platform/internal/catalog"
	"github.com/wolfman30/quickie-platform/internal/contact"
	"github.com/wolfman30/quickie-platform/internal/content"
	"github.com/wolfman30/quickie-platform/internal/gateway"
	httpmiddleware "github.com/wolfman30/quickie-platform/internal/http/middleware"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/internal/identity"
	"github.com/wolfman30/quickie-platform/internal/visitor"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	VisitorCookie      visitor.CookieOptions
	HealthChecks       map[string]HealthCheck

	// Sessions resolves bearer tokens; nil treats every caller as anonymous.
	Sessions identity.SessionResolver

	AuthHandler    *identity.Handler
	BookingHandler *booking.Handler
	CatalogHandler *catalog.Handler
	ContactHandler *contact.Handler
	ContentHandler *content.Handler
	AdminHandler   *admin.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(visitor.Middleware(cfg.VisitorCookie))
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if cfg.Sessions != nil {
		r.Use(identity.Middleware(cfg.Sessions, cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(site chi.Router) {
		site.Use(middleware.Compress(5))
		if cfg.RateLimiter != nil {
			site.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		}
		if cfg.AuthHandler != nil {
			site.Route("/auth", cfg.AuthHandler.Routes)
		}
		if cfg.BookingHandler != nil {
			site.Route("/booking/wizard", cfg.BookingHandler.Routes)
		}
		if cfg.CatalogHandler != nil {
			site.Route("/catalog", cfg.CatalogHandler.Routes)
			site.Route("/cart", cfg.CatalogHandler.CartRoutes)
		}
		if cfg.ContactHandler != nil {
			cfg.ContactHandler.Routes(site)
		}
		if cfg.ContentHandler != nil {
			site.Route("/content", cfg.ContentHandler.Routes)
		}
	})

	// Staff dashboard. The websocket endpoint is excluded from compression.
	if cfg.AdminHandler != nil {
		r.Route("/admin", func(staff chi.Router) {
			staff.Use(identity.RequireRole(gateway.RoleStaff, "/"))
			cfg.AdminHandler.Routes(staff)
		})
	}

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if len(names) == 0 {
			respond.JSON(w, http.StatusOK, resp)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(names))
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		respond.JSON(w, status, resp)
	}
}
