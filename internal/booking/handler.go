package booking

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/internal/identity"
	"github.com/wolfman30/quickie-platform/internal/visitor"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

const (
	msgSubmitted        = "Booking submitted successfully! We will contact you soon to confirm your appointment."
	msgExpired          = "Your booking session has expired. Please start again."
	msgAvailabilityDown = "We could not check availability right now. All times are shown as open."
)

// Handler serves the booking wizard endpoints.
type Handler struct {
	ctrl   *Controller
	logger *logging.Logger
}

// NewHandler creates a new booking handler
func NewHandler(ctrl *Controller, logger *logging.Logger) *Handler {
	if ctrl == nil {
		panic("booking: controller required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{ctrl: ctrl, logger: logger}
}

// Routes mounts the wizard endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Start)
	r.Route("/{wizardID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/service", h.SelectService)
		r.Post("/branch", h.SelectBranch)
		r.Post("/date", h.SetDate)
		r.Post("/time", h.SetTime)
		r.Post("/customer", h.SetCustomer)
		r.Post("/next", h.Next)
		r.Post("/back", h.Back)
		r.Post("/submit", h.Submit)
		r.Post("/reset", h.Reset)
	})
}

// ServiceOption is a service card on the first step.
type ServiceOption struct {
	Service
	PriceLabel    string `json:"price_label"`
	DurationLabel string `json:"duration_label"`
	Selected      bool   `json:"selected"`
}

// BranchOption is a branch card on the second step.
type BranchOption struct {
	Branch
	Selected bool `json:"selected"`
}

// Summary describes the current selection.
type Summary struct {
	ServiceName   string `json:"service_name,omitempty"`
	PriceLabel    string `json:"price_label,omitempty"`
	DurationLabel string `json:"duration_label,omitempty"`
	BranchName    string `json:"branch_name,omitempty"`
	BranchAddress string `json:"branch_address,omitempty"`
	DateTimeLabel string `json:"datetime_label,omitempty"`
}

// Confirmation is returned once a booking is submitted.
type Confirmation struct {
	ID           string `json:"id"`
	Service      string `json:"service"`
	Location     string `json:"location"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	CustomerName string `json:"customer"`
}

// View is the JSON shape of a wizard page.
type View struct {
	ID        string          `json:"id"`
	Stage     Stage           `json:"stage"`
	StageName string          `json:"stage_name"`
	Services  []ServiceOption `json:"services"`
	Branches  []BranchOption  `json:"branches"`
	Summary   Summary         `json:"summary"`
	Date      string          `json:"date,omitempty"`
	Time      string          `json:"time,omitempty"`
	MinDate   string          `json:"min_date"`
	Slots     []Slot          `json:"slots"`
	Customer  CustomerInfo    `json:"customer"`
	CanBack   bool            `json:"can_back"`
	CanNext   bool            `json:"can_next"`
	CanSubmit bool            `json:"can_submit"`
	Booking   *Confirmation   `json:"booking,omitempty"`
	Notice    *respond.Notice `json:"notice,omitempty"`
}

func summarize(w *Wizard) Summary {
	var s Summary
	if svc := w.Selection.Service; svc != nil {
		s.ServiceName = svc.Name
		s.PriceLabel = svc.PriceLabel()
		s.DurationLabel = svc.DurationLabel()
	}
	if b := w.Selection.Branch; b != nil {
		s.BranchName = b.Name
		s.BranchAddress = b.Address
	}
	s.DateTimeLabel = DateTimeLabel(w.Selection.Date, w.Selection.Time)
	return s
}

func (h *Handler) view(ctx context.Context, w *Wizard) (View, error) {
	cat, err := h.ctrl.Catalog(ctx)
	if err != nil {
		return View{}, err
	}
	v := View{
		ID:        w.ID,
		Stage:     w.Stage,
		StageName: w.Stage.String(),
		Services:  make([]ServiceOption, 0, len(cat.Services)),
		Branches:  make([]BranchOption, 0, len(cat.Branches)),
		Summary:   summarize(w),
		Date:      w.Selection.Date,
		Time:      w.Selection.Time,
		MinDate:   h.ctrl.MinDate(),
		Slots:     w.Slots(),
		Customer:  w.Customer,
		CanBack:   w.CanBack(),
		CanNext:   w.CanNext(),
		CanSubmit: w.CanSubmit(),
	}
	for _, svc := range cat.Services {
		v.Services = append(v.Services, ServiceOption{
			Service:       svc,
			PriceLabel:    svc.PriceLabel(),
			DurationLabel: svc.DurationLabel(),
			Selected:      w.Selection.Service != nil && w.Selection.Service.ID == svc.ID,
		})
	}
	for _, b := range cat.Branches {
		v.Branches = append(v.Branches, BranchOption{
			Branch:   b,
			Selected: w.Selection.Branch != nil && w.Selection.Branch.ID == b.ID,
		})
	}
	if w.availabilityErr != nil {
		v.Notice = respond.NewNotice(respond.LevelWarning, msgAvailabilityDown, respond.DismissForm)
	}
	return v, nil
}

func (h *Handler) render(rw http.ResponseWriter, r *http.Request, w *Wizard, status int, notice *respond.Notice) {
	v, err := h.view(r.Context(), w)
	if err != nil {
		h.logger.Error("failed to load booking options", "error", err)
		respond.Error(rw, err, respond.DismissForm)
		return
	}
	if notice != nil {
		v.Notice = notice
	}
	respond.JSON(rw, status, v)
}

func (h *Handler) fail(rw http.ResponseWriter, r *http.Request, w *Wizard, err error) {
	var stepErr *StepError
	switch {
	case errors.As(err, &stepErr):
		h.render(rw, r, w, http.StatusUnprocessableEntity,
			respond.NewNotice(respond.LevelWarning, stepErr.Message, respond.DismissForm))
	case errors.Is(err, ErrUnknownService):
		h.render(rw, r, w, http.StatusNotFound,
			respond.NewNotice(respond.LevelError, "Service not found", respond.DismissForm))
	case errors.Is(err, ErrUnknownBranch):
		h.render(rw, r, w, http.StatusNotFound,
			respond.NewNotice(respond.LevelError, "Branch not found", respond.DismissForm))
	default:
		respond.Error(rw, err, respond.DismissForm)
	}
}

func (h *Handler) load(rw http.ResponseWriter, r *http.Request) (*Wizard, bool) {
	visitorID, _ := visitor.IDFromContext(r.Context())
	w, err := h.ctrl.Load(r.Context(), chi.URLParam(r, "wizardID"), visitorID)
	if errors.Is(err, ErrWizardNotFound) {
		respond.Notify(rw, http.StatusNotFound, respond.LevelWarning, msgExpired, respond.DismissForm)
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load wizard", "error", err)
		respond.Error(rw, err, respond.DismissForm)
		return nil, false
	}
	return w, true
}

// apply runs op on the stored wizard and saves it when op succeeds.
func (h *Handler) apply(rw http.ResponseWriter, r *http.Request, op func(ctx context.Context, w *Wizard) error) {
	w, ok := h.load(rw, r)
	if !ok {
		return
	}
	if err := op(r.Context(), w); err != nil {
		h.fail(rw, r, w, err)
		return
	}
	if err := h.ctrl.Save(r.Context(), w); err != nil {
		h.logger.Error("failed to save wizard", "error", err, "wizard_id", w.ID)
		respond.Error(rw, err, respond.DismissForm)
		return
	}
	h.render(rw, r, w, http.StatusOK, nil)
}

// Start handles POST /booking/wizard
func (h *Handler) Start(rw http.ResponseWriter, r *http.Request) {
	visitorID, ok := visitor.IDFromContext(r.Context())
	if !ok {
		respond.BadRequest(rw, "Missing visitor id", respond.DismissForm)
		return
	}
	w, err := h.ctrl.Start(r.Context(), visitorID, identity.FromContext(r.Context()).Current())
	if err != nil {
		h.logger.Error("failed to start wizard", "error", err)
		respond.Error(rw, err, respond.DismissForm)
		return
	}
	h.render(rw, r, w, http.StatusCreated, nil)
}

// Get handles GET /booking/wizard/{wizardID}
func (h *Handler) Get(rw http.ResponseWriter, r *http.Request) {
	w, ok := h.load(rw, r)
	if !ok {
		return
	}
	h.render(rw, r, w, http.StatusOK, nil)
}

type idRequest struct {
	ID string `json:"id"`
}

// SelectService handles POST /booking/wizard/{wizardID}/service
func (h *Handler) SelectService(rw http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.BadRequest(rw, "Invalid request body", respond.DismissForm)
		return
	}
	h.apply(rw, r, func(ctx context.Context, w *Wizard) error {
		return h.ctrl.SelectService(ctx, w, req.ID)
	})
}

// SelectBranch handles POST /booking/wizard/{wizardID}/branch
func (h *Handler) SelectBranch(rw http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.BadRequest(rw, "Invalid request body", respond.DismissForm)
		return
	}
	h.apply(rw, r, func(ctx context.Context, w *Wizard) error {
		return h.ctrl.SelectBranch(ctx, w, req.ID)
	})
}

// SetDate handles POST /booking/wizard/{wizardID}/date
func (h *Handler) SetDate(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.BadRequest(rw, "Invalid request body", respond.DismissForm)
		return
	}
	h.apply(rw, r, func(ctx context.Context, w *Wizard) error {
		return h.ctrl.SetDate(ctx, w, req.Date)
	})
}

// SetTime handles POST /booking/wizard/{wizardID}/time
func (h *Handler) SetTime(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Time string `json:"time"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.BadRequest(rw, "Invalid request body", respond.DismissForm)
		return
	}
	h.apply(rw, r, func(_ context.Context, w *Wizard) error {
		return w.SetTime(req.Time)
	})
}

// SetCustomer handles POST /booking/wizard/{wizardID}/customer
func (h *Handler) SetCustomer(rw http.ResponseWriter, r *http.Request) {
	var info CustomerInfo
	if err := respond.DecodeJSON(r, &info); err != nil {
		respond.BadRequest(rw, "Invalid request body", respond.DismissForm)
		return
	}
	h.apply(rw, r, func(_ context.Context, w *Wizard) error {
		w.SetCustomer(info)
		return nil
	})
}

// Next handles POST /booking/wizard/{wizardID}/next
func (h *Handler) Next(rw http.ResponseWriter, r *http.Request) {
	h.apply(rw, r, h.ctrl.Next)
}

// Back handles POST /booking/wizard/{wizardID}/back
func (h *Handler) Back(rw http.ResponseWriter, r *http.Request) {
	h.apply(rw, r, func(_ context.Context, w *Wizard) error {
		return w.Back()
	})
}

// Reset handles POST /booking/wizard/{wizardID}/reset
func (h *Handler) Reset(rw http.ResponseWriter, r *http.Request) {
	h.apply(rw, r, func(_ context.Context, w *Wizard) error {
		w.Reset()
		return nil
	})
}

// Submit handles POST /booking/wizard/{wizardID}/submit
func (h *Handler) Submit(rw http.ResponseWriter, r *http.Request) {
	w, ok := h.load(rw, r)
	if !ok {
		return
	}
	confirmation := Confirmation{
		Date:         DateLabel(w.Selection.Date),
		Time:         TimeLabel(w.Selection.Time),
		CustomerName: w.Customer.Name,
	}
	if w.Selection.Service != nil {
		confirmation.Service = w.Selection.Service.Name
	}
	if w.Selection.Branch != nil {
		confirmation.Location = w.Selection.Branch.Name
	}

	rec, err := h.ctrl.Submit(r.Context(), w)
	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			h.fail(rw, r, w, err)
			return
		}
		h.render(rw, r, w, respond.StatusFor(err),
			respond.NewNotice(respond.LevelError, gateway.Translate(err), respond.DismissForm))
		return
	}
	if err := h.ctrl.Save(r.Context(), w); err != nil {
		h.logger.Warn("failed to save reset wizard", "error", err, "wizard_id", w.ID)
	}
	confirmation.ID = rec.ID

	v, err := h.view(r.Context(), w)
	if err != nil {
		v = View{ID: w.ID, Stage: w.Stage, StageName: w.Stage.String()}
	}
	v.Booking = &confirmation
	v.Notice = respond.NewNotice(respond.LevelSuccess, msgSubmitted, respond.DismissForm)
	respond.JSON(rw, http.StatusCreated, v)
}
