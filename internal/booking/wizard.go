package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StepError is a validation failure shown to the visitor as a warning. The
// wizard is left unchanged when one is returned.
type StepError struct {
	Message string
}

func (e *StepError) Error() string { return "booking: " + e.Message }

var (
	ErrServiceRequired  = &StepError{Message: "Please select a service"}
	ErrBranchRequired   = &StepError{Message: "Please select a branch"}
	ErrDateTimeRequired = &StepError{Message: "Please select both date and time"}
	ErrCustomerRequired = &StepError{Message: "Please fill in all required fields"}
	ErrTermsRequired    = &StepError{Message: "Please accept the terms and conditions"}
	ErrInvalidDate      = &StepError{Message: "Please choose a date from tomorrow onwards"}
	ErrInvalidSlot      = &StepError{Message: "Please choose one of the listed time slots"}
	ErrSlotUnavailable  = &StepError{Message: "That time is already booked. Please choose another time"}
	ErrNotReady         = &StepError{Message: "Please complete every step before confirming"}
	ErrNoPreviousStep   = &StepError{Message: "You are already on the first step"}
)

var (
	// ErrUnknownService is returned when a selected service id is not listed.
	ErrUnknownService = errors.New("booking: service not found")

	// ErrUnknownBranch is returned when a selected branch id is not listed.
	ErrUnknownBranch = errors.New("booking: branch not found")
)

// AvailabilityChecker reports the occupied slots for a service, branch and date.
type AvailabilityChecker interface {
	BookedSlots(ctx context.Context, serviceID, branchID, date string) ([]string, error)
}

// RecordCreator persists a new booking record.
type RecordCreator interface {
	CreateBooking(ctx context.Context, rec Record) (*Record, error)
}

// Wizard is one visitor's progress through the booking flow.
type Wizard struct {
	ID        string       `json:"id"`
	VisitorID string       `json:"visitor_id"`
	Stage     Stage        `json:"stage"`
	Selection Selection    `json:"selection"`
	Customer  CustomerInfo `json:"customer"`
	Booked    []string     `json:"booked,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`

	availabilityErr error
}

// NewWizard starts an empty wizard at the service step.
func NewWizard(visitorID string) *Wizard {
	return &Wizard{ID: uuid.NewString(), VisitorID: visitorID, Stage: StageService}
}

// SelectService picks a service from the listed ones. The stage does not move.
func (w *Wizard) SelectService(services []Service, id string) error {
	for i := range services {
		if services[i].ID == id {
			svc := services[i]
			w.Selection.Service = &svc
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownService, id)
}

// SelectBranch picks a branch from the listed ones. The stage does not move.
func (w *Wizard) SelectBranch(branches []Branch, id string) error {
	for i := range branches {
		if branches[i].ID == id {
			b := branches[i]
			w.Selection.Branch = &b
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownBranch, id)
}

// SetDate sets the preferred date, which must be no earlier than tomorrow.
func (w *Wizard) SetDate(date string, now time.Time) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return ErrInvalidDate
	}
	if date < MinDate(now) {
		return ErrInvalidDate
	}
	if date != w.Selection.Date {
		w.Booked = nil
	}
	w.Selection.Date = date
	return nil
}

// SetTime sets the preferred slot, which must be standard and not booked.
func (w *Wizard) SetTime(slot string) error {
	if !isStandardSlot(slot) {
		return ErrInvalidSlot
	}
	if w.isBooked(slot) {
		return ErrSlotUnavailable
	}
	w.Selection.Time = slot
	return nil
}

// SetCustomer stores the customer's details.
func (w *Wizard) SetCustomer(info CustomerInfo) {
	w.Customer = info.trimmed()
}

// Prefill copies profile details into empty customer fields.
func (w *Wizard) Prefill(name, email, phone string) {
	if w.Customer.Name == "" {
		w.Customer.Name = name
	}
	if w.Customer.Email == "" {
		w.Customer.Email = email
	}
	if w.Customer.Phone == "" {
		w.Customer.Phone = phone
	}
}

// stepError is the reason the current stage cannot be left forwards, or nil.
func (w *Wizard) stepError() error { return w.stageError(w.Stage) }

func (w *Wizard) stageError(stage Stage) error {
	switch stage {
	case StageService:
		if w.Selection.Service == nil {
			return ErrServiceRequired
		}
	case StageBranch:
		if w.Selection.Branch == nil {
			return ErrBranchRequired
		}
	case StageDateTime:
		if w.Selection.Date == "" || w.Selection.Time == "" {
			return ErrDateTimeRequired
		}
	case StageCustomer:
		c := w.Customer
		if c.Name == "" || c.Email == "" || c.Phone == "" {
			return ErrCustomerRequired
		}
		if !c.TermsAccepted {
			return ErrTermsRequired
		}
	case StageConfirm:
		return ErrNotReady
	}
	return nil
}

// CanNext reports whether Next would succeed.
func (w *Wizard) CanNext() bool { return w.Stage < StageConfirm && w.stepError() == nil }

// CanBack reports whether Back would succeed.
func (w *Wizard) CanBack() bool { return w.Stage > StageService }

// CanSubmit reports whether the wizard is on the confirmation step.
func (w *Wizard) CanSubmit() bool { return w.Stage == StageConfirm }

// Next advances one stage when the current stage is complete.
func (w *Wizard) Next() error {
	if err := w.stepError(); err != nil {
		return err
	}
	w.Stage++
	return nil
}

// Back returns to the previous stage.
func (w *Wizard) Back() error {
	if !w.CanBack() {
		return ErrNoPreviousStep
	}
	w.Stage--
	return nil
}

// Reset clears every selection and returns to the first stage.
func (w *Wizard) Reset() {
	w.Stage = StageService
	w.Selection = Selection{}
	w.Customer = CustomerInfo{}
	w.Booked = nil
	w.availabilityErr = nil
}

// availabilityReady reports whether service, branch and date are all chosen.
func (w *Wizard) availabilityReady() bool {
	return w.Selection.Service != nil && w.Selection.Branch != nil && w.Selection.Date != ""
}

// RefreshAvailability reloads the booked slots and clears a chosen time that
// is no longer free. On lookup failure every slot stays enabled and the error
// is returned.
func (w *Wizard) RefreshAvailability(ctx context.Context, checker AvailabilityChecker) error {
	w.availabilityErr = nil
	if !w.availabilityReady() {
		w.Booked = nil
		return nil
	}
	booked, err := checker.BookedSlots(ctx, w.Selection.Service.ID, w.Selection.Branch.ID, w.Selection.Date)
	if err != nil {
		w.Booked = nil
		w.availabilityErr = err
		return err
	}
	w.Booked = booked
	if w.Selection.Time != "" && w.isBooked(w.Selection.Time) {
		w.Selection.Time = ""
	}
	return nil
}

func (w *Wizard) isBooked(slot string) bool {
	for _, b := range w.Booked {
		if b == slot {
			return true
		}
	}
	return false
}

// Slots returns every standard slot with its availability.
func (w *Wizard) Slots() []Slot { return buildSlots(w.Booked) }

// Record packages the selection and customer details as a pending booking.
func (w *Wizard) Record() (Record, error) {
	if w.Stage != StageConfirm || w.Selection.Service == nil || w.Selection.Branch == nil ||
		w.Selection.Date == "" || w.Selection.Time == "" {
		return Record{}, ErrNotReady
	}
	for stage := StageService; stage < StageConfirm; stage++ {
		if err := w.stageError(stage); err != nil {
			return Record{}, err
		}
	}
	rec := Record{
		CustomerName:  w.Customer.Name,
		CustomerEmail: w.Customer.Email,
		CustomerPhone: w.Customer.Phone,
		ServiceID:     w.Selection.Service.ID,
		BranchID:      w.Selection.Branch.ID,
		PreferredDate: w.Selection.Date,
		PreferredTime: w.Selection.Time,
		Status:        StatusPending,
	}
	if w.Customer.Notes != "" {
		notes := w.Customer.Notes
		rec.Notes = &notes
	}
	return rec, nil
}

// Submit creates the booking from the confirmation step. On success the
// wizard is reset; on failure it is left untouched.
func (w *Wizard) Submit(ctx context.Context, creator RecordCreator) (*Record, error) {
	rec, err := w.Record()
	if err != nil {
		return nil, err
	}
	created, err := creator.CreateBooking(ctx, rec)
	if err != nil {
		return nil, err
	}
	w.Reset()
	return created, nil
}
