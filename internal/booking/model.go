package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stage is a step of the booking wizard.
type Stage int

const (
	StageService  Stage = 1
	StageBranch   Stage = 2
	StageDateTime Stage = 3
	StageCustomer Stage = 4
	StageConfirm  Stage = 5
)

var stageNames = map[Stage]string{
	StageService:  "service-select",
	StageBranch:   "branch-select",
	StageDateTime: "datetime-select",
	StageCustomer: "customer-info",
	StageConfirm:  "confirm",
}

// String returns the stage's page name.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Status is the lifecycle state of a booking record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every valid booking status in display order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled}

// OccupyingStatuses are the statuses that make a slot unavailable.
var OccupyingStatuses = []string{string(StatusPending), string(StatusConfirmed), string(StatusInProgress)}

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	for _, st := range Statuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Service is a bookable offering.
type Service struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	PriceFrom       *float64 `json:"price_from"`
	PriceTo         *float64 `json:"price_to"`
	DurationMinutes *int     `json:"duration_minutes"`
	SortOrder       int      `json:"sort_order"`
}

// PriceLabel renders the service's price range.
func (s *Service) PriceLabel() string {
	switch {
	case s.PriceFrom != nil && s.PriceTo != nil:
		return fmt.Sprintf("₱%s - ₱%s", formatAmount(*s.PriceFrom), formatAmount(*s.PriceTo))
	case s.PriceFrom != nil:
		return "From ₱" + formatAmount(*s.PriceFrom)
	default:
		return "Price on request"
	}
}

// DurationLabel renders the expected duration.
func (s *Service) DurationLabel() string {
	if s.DurationMinutes == nil {
		return "Duration varies"
	}
	return fmt.Sprintf("%d minutes", *s.DurationMinutes)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Branch is a physical location.
type Branch struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Email        string   `json:"email,omitempty"`
	OpeningHours any      `json:"opening_hours,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// Selection is what the visitor has picked so far.
type Selection struct {
	Service *Service `json:"service,omitempty"`
	Branch  *Branch  `json:"branch,omitempty"`
	Date    string   `json:"date,omitempty"`
	Time    string   `json:"time,omitempty"`
}

// CustomerInfo is the contact block of a booking.
type CustomerInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Notes         string `json:"notes,omitempty"`
	TermsAccepted bool   `json:"terms_accepted"`
}

func (c CustomerInfo) trimmed() CustomerInfo {
	return CustomerInfo{
		Name:          strings.TrimSpace(c.Name),
		Email:         strings.TrimSpace(c.Email),
		Phone:         strings.TrimSpace(c.Phone),
		Notes:         strings.TrimSpace(c.Notes),
		TermsAccepted: c.TermsAccepted,
	}
}

// Record is a row of the bookings table.
type Record struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	ServiceID     string    `json:"service_id"`
	BranchID      string    `json:"branch_id"`
	PreferredDate string    `json:"preferred_date"`
	PreferredTime string    `json:"preferred_time"`
	Notes         *string   `json:"notes"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
