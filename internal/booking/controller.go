package booking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/observability/metrics"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("quickie.internal.booking")

// Controller drives wizards against the repository and the wizard store.
type Controller struct {
	repo    *Repository
	store   WizardStore
	metrics *metrics.SiteMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewController constructs a booking controller. metrics may be nil.
func NewController(repo *Repository, store WizardStore, m *metrics.SiteMetrics, logger *logging.Logger) *Controller {
	if repo == nil {
		panic("booking: repository required")
	}
	if store == nil {
		panic("booking: wizard store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{repo: repo, store: store, metrics: m, logger: logger, now: time.Now}
}

// Catalog is the services and branches offered on the first two steps.
type Catalog struct {
	Services []Service
	Branches []Branch
}

// Catalog loads the active services and branches.
func (c *Controller) Catalog(ctx context.Context) (Catalog, error) {
	services, err := c.repo.ListServices(ctx)
	if err != nil {
		return Catalog{}, err
	}
	branches, err := c.repo.ListBranches(ctx)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{Services: services, Branches: branches}, nil
}

// Start creates and stores a wizard for visitorID, prefilled from who when signed in.
func (c *Controller) Start(ctx context.Context, visitorID string, who *gateway.Identity) (*Wizard, error) {
	w := NewWizard(visitorID)
	if who != nil {
		w.Prefill(who.FullName, who.Email, who.Phone)
	}
	if err := c.Save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Load returns the wizard id owned by visitorID.
func (c *Controller) Load(ctx context.Context, id, visitorID string) (*Wizard, error) {
	w, err := c.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.VisitorID != visitorID {
		return nil, ErrWizardNotFound
	}
	return w, nil
}

// Save stores w.
func (c *Controller) Save(ctx context.Context, w *Wizard) error {
	w.UpdatedAt = c.now().UTC()
	return c.store.Save(ctx, w)
}

// SelectService picks a service and refreshes availability when a date is set.
func (c *Controller) SelectService(ctx context.Context, w *Wizard, id string) error {
	services, err := c.repo.ListServices(ctx)
	if err != nil {
		return err
	}
	if err := w.SelectService(services, id); err != nil {
		return err
	}
	c.refresh(ctx, w)
	return nil
}

// SelectBranch picks a branch and refreshes availability when a date is set.
func (c *Controller) SelectBranch(ctx context.Context, w *Wizard, id string) error {
	branches, err := c.repo.ListBranches(ctx)
	if err != nil {
		return err
	}
	if err := w.SelectBranch(branches, id); err != nil {
		return err
	}
	c.refresh(ctx, w)
	return nil
}

// SetDate sets the date and looks up its booked slots.
func (c *Controller) SetDate(ctx context.Context, w *Wizard, date string) error {
	if err := w.SetDate(date, c.now()); err != nil {
		return err
	}
	c.refresh(ctx, w)
	return nil
}

// Next advances the wizard, checking availability on entering the date step.
func (c *Controller) Next(ctx context.Context, w *Wizard) error {
	if err := w.Next(); err != nil {
		return err
	}
	if w.Stage == StageDateTime {
		c.refresh(ctx, w)
	}
	return nil
}

// MinDate is the earliest date the wizard accepts today.
func (c *Controller) MinDate() string { return MinDate(c.now()) }

// refresh runs the availability lookup. Failures are logged and leave every
// slot enabled.
func (c *Controller) refresh(ctx context.Context, w *Wizard) {
	if !w.availabilityReady() {
		w.Booked = nil
		return
	}
	ctx, span := bookingTracer.Start(ctx, "booking.availability")
	defer span.End()
	span.SetAttributes(
		attribute.String("quickie.service_id", w.Selection.Service.ID),
		attribute.String("quickie.branch_id", w.Selection.Branch.ID),
		attribute.String("quickie.date", w.Selection.Date),
	)

	if err := w.RefreshAvailability(ctx, c.repo); err != nil {
		span.RecordError(err)
		c.metrics.ObserveAvailabilityCheck("error")
		c.logger.Warn("availability lookup failed", "error", err, "wizard_id", w.ID, "date", w.Selection.Date)
		return
	}
	c.metrics.ObserveAvailabilityCheck("ok")
}

// Submit creates the booking and resets the wizard on success.
func (c *Controller) Submit(ctx context.Context, w *Wizard) (*Record, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(attribute.String("quickie.wizard_id", w.ID))

	rec, err := w.Submit(ctx, c.repo)
	if err != nil {
		span.RecordError(err)
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			c.metrics.ObserveBookingSubmission("invalid")
		} else {
			c.metrics.ObserveBookingSubmission("error")
			c.logger.Error("booking submission failed", "error", err, "wizard_id", w.ID)
		}
		return nil, err
	}
	c.metrics.ObserveBookingSubmission("created")
	span.SetAttributes(attribute.String("quickie.booking_id", rec.ID))
	c.logger.Info("booking created", "booking_id", rec.ID, "service_id", rec.ServiceID,
		"branch_id", rec.BranchID, "date", rec.PreferredDate, "time", rec.PreferredTime)
	return rec, nil
}
