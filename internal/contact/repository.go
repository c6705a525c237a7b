package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/quickie-platform/internal/gateway"
)

// Inserter is the slice of the gateway intake writes through.
type Inserter interface {
	Insert(ctx context.Context, table string, record gateway.Row) (gateway.Row, error)
}

// Repository stores contact messages and service requests.
type Repository struct {
	rows Inserter
}

// NewRepository creates a repository over the gateway.
func NewRepository(rows Inserter) *Repository {
	if rows == nil {
		panic("contact: gateway required")
	}
	return &Repository{rows: rows}
}

// CreateMessage stores a general enquiry. The subject defaults to "General Inquiry".
func (r *Repository) CreateMessage(ctx context.Context, req *GeneralRequest) (*Message, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = defaultSubject
	}
	stored, err := r.rows.Insert(ctx, gateway.TableContactMessages, gateway.Row{
		"name":    strings.TrimSpace(req.Name),
		"email":   strings.TrimSpace(req.Email),
		"phone":   optional(req.Phone),
		"subject": subject,
		"message": strings.TrimSpace(req.Message),
		"type":    typeGeneral,
		"status":  StatusNew,
	})
	if err != nil {
		return nil, fmt.Errorf("contact: create message: %w", err)
	}
	var msg Message
	if err := stored.Decode(&msg); err != nil {
		return nil, fmt.Errorf("contact: create message: %w", err)
	}
	return &msg, nil
}

// CreateServiceRequest stores a service request. Urgency defaults to normal.
func (r *Repository) CreateServiceRequest(ctx context.Context, in *ServiceRequestInput) (*ServiceRequest, error) {
	urgency := strings.TrimSpace(in.Urgency)
	if urgency == "" {
		urgency = UrgencyNormal
	}
	stored, err := r.rows.Insert(ctx, gateway.TableServiceRequests, gateway.Row{
		"customer_name":  strings.TrimSpace(in.Name),
		"customer_email": strings.TrimSpace(in.Email),
		"customer_phone": strings.TrimSpace(in.Phone),
		"service_type":   strings.TrimSpace(in.ServiceType),
		"description":    strings.TrimSpace(in.Description),
		"preferred_date": optional(in.PreferredDate),
		"urgency":        urgency,
		"status":         StatusNew,
	})
	if err != nil {
		return nil, fmt.Errorf("contact: create service request: %w", err)
	}
	var sr ServiceRequest
	if err := stored.Decode(&sr); err != nil {
		return nil, fmt.Errorf("contact: create service request: %w", err)
	}
	return &sr, nil
}
