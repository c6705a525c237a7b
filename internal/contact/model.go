package contact

import (
	"strings"
	"time"
)

// Message statuses.
const (
	StatusNew      = "new"
	StatusReplied  = "replied"
	StatusResolved = "resolved"
	StatusArchived = "archived"
)

// MessageStatuses lists every valid contact message status.
var MessageStatuses = []string{StatusNew, StatusReplied, StatusResolved, StatusArchived}

// ValidMessageStatus reports whether s is a known message status.
func ValidMessageStatus(s string) bool {
	for _, st := range MessageStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Urgency levels for service requests.
const (
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
	UrgencyUrgent = "urgent"
)

const (
	defaultSubject = "General Inquiry"
	typeGeneral    = "general"
)

// Message represents a row of contact_messages.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ServiceRequest represents a row of service_requests.
type ServiceRequest struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	ServiceType   string    `json:"service_type"`
	Description   string    `json:"description"`
	PreferredDate *string   `json:"preferred_date"`
	Urgency       string    `json:"urgency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// GeneralRequest is the body of POST /contact.
type GeneralRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Privacy bool   `json:"privacy"`
}

// ServiceRequestInput is the body of POST /service-requests.
type ServiceRequestInput struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	ServiceType   string `json:"serviceType"`
	Description   string `json:"description"`
	PreferredDate string `json:"preferredDate"`
	Urgency       string `json:"urgency"`
}

func optional(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return &v
}
