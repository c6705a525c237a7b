package contact

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/internal/observability/metrics"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

const msgSent = "Thank you! Your message has been sent successfully. We'll get back to you soon."

// Handler handles HTTP requests for contact forms
type Handler struct {
	repo    *Repository
	metrics *metrics.SiteMetrics
	logger  *logging.Logger
}

// NewHandler creates a new contact handler
func NewHandler(repo *Repository, m *metrics.SiteMetrics, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("contact: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, metrics: m, logger: logger}
}

// Routes mounts both intake forms at the router root.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/contact", h.SubmitMessage)
	r.Post("/service-requests", h.SubmitServiceRequest)
}

// SubmitResponse is returned by both forms.
type SubmitResponse struct {
	ID     string          `json:"id"`
	Notice *respond.Notice `json:"notice"`
}

type validator interface {
	Validate() error
}

func (h *Handler) invalid(w http.ResponseWriter, form string, v validator) bool {
	err := v.Validate()
	if err == nil {
		return false
	}
	h.metrics.ObserveContactSubmission(form, "invalid")
	var ve *ValidationError
	if errors.As(err, &ve) {
		respond.FieldErrors(w, ve.Fields, respond.DismissForm)
		return true
	}
	respond.BadRequest(w, err.Error(), respond.DismissForm)
	return true
}

// SubmitMessage handles POST /contact
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req GeneralRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		respond.BadRequest(w, "Invalid request body", respond.DismissForm)
		return
	}
	if h.invalid(w, "general", &req) {
		return
	}

	msg, err := h.repo.CreateMessage(r.Context(), &req)
	if err != nil {
		h.metrics.ObserveContactSubmission("general", "error")
		h.logger.Error("failed to create contact message", "error", err)
		respond.Error(w, err, respond.DismissForm)
		return
	}
	h.metrics.ObserveContactSubmission("general", "created")
	h.logger.Info("contact message created", "id", msg.ID)
	respond.JSON(w, http.StatusCreated, SubmitResponse{
		ID:     msg.ID,
		Notice: respond.NewNotice(respond.LevelSuccess, msgSent, respond.DismissForm),
	})
}

// SubmitServiceRequest handles POST /service-requests
func (h *Handler) SubmitServiceRequest(w http.ResponseWriter, r *http.Request) {
	var in ServiceRequestInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		respond.BadRequest(w, "Invalid request body", respond.DismissForm)
		return
	}
	if h.invalid(w, "service_request", &in) {
		return
	}

	sr, err := h.repo.CreateServiceRequest(r.Context(), &in)
	if err != nil {
		h.metrics.ObserveContactSubmission("service_request", "error")
		h.logger.Error("failed to create service request", "error", err)
		respond.Error(w, err, respond.DismissForm)
		return
	}
	h.metrics.ObserveContactSubmission("service_request", "created")
	h.logger.Info("service request created", "id", sr.ID, "urgency", sr.Urgency)
	respond.JSON(w, http.StatusCreated, SubmitResponse{
		ID:     sr.ID,
		Notice: respond.NewNotice(respond.LevelSuccess, msgSent, respond.DismissForm),
	})
}
