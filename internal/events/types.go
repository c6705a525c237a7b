package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event type names carried on every Entry.
const (
	TypeBookingCreated  = "booking.created.v1"
	TypeContactReceived = "contact.received.v1"
)

// Contact kinds.
const (
	KindGeneral        = "general"
	KindServiceRequest = "service_request"
)

// Entry is one event ready for delivery.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry encodes payload as an entry of the given type.
func NewEntry(eventType string, payload any, at time.Time) (Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	return Entry{ID: uuid.New(), Type: eventType, Payload: data, CreatedAt: at}, nil
}

type BookingCreatedV1 struct {
	BookingID     string    `json:"booking_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	ServiceID     string    `json:"service_id"`
	ServiceName   string    `json:"service_name,omitempty"`
	BranchID      string    `json:"branch_id"`
	BranchName    string    `json:"branch_name,omitempty"`
	PreferredDate string    `json:"preferred_date"`
	PreferredTime string    `json:"preferred_time"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type ContactReceivedV1 struct {
	MessageID     string    `json:"message_id"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Message       string    `json:"message"`
	ServiceType   string    `json:"service_type,omitempty"`
	Urgency       string    `json:"urgency,omitempty"`
	PreferredDate string    `json:"preferred_date,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
