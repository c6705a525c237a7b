package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/wolfman30/quickie-platform/internal/booking"
	"github.com/wolfman30/quickie-platform/internal/events"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// Config controls who is notified and how links are built.
type Config struct {
	StaffEmail    string
	PublicBaseURL string
}

// Service sends staff notifications and account mail.
type Service struct {
	email  EmailSender
	cfg    Config
	logger *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Service{email: email, cfg: cfg, logger: logger}
}

// Handle dispatches a forwarded event to the matching notification.
func (s *Service) Handle(ctx context.Context, entry events.Entry) error {
	switch entry.Type {
	case events.TypeBookingCreated:
		var evt events.BookingCreatedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
		}
		return s.NotifyNewBooking(ctx, evt)
	case events.TypeContactReceived:
		var evt events.ContactReceivedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
		}
		return s.NotifyNewContact(ctx, evt)
	}
	s.logger.Debug("notify: ignoring event", "type", entry.Type)
	return nil
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// NotifyNewBooking tells staff about a booking request.
func (s *Service) NotifyNewBooking(ctx context.Context, evt events.BookingCreatedV1) error {
	if s.cfg.StaffEmail == "" {
		s.logger.Debug("notify: staff email not configured, skipping booking notification", "booking_id", evt.BookingID)
		return nil
	}
	service := evt.ServiceName
	if service == "" {
		service = evt.ServiceID
	}
	branch := evt.BranchName
	if branch == "" {
		branch = evt.BranchID
	}
	when := booking.DateTimeLabel(evt.PreferredDate, booking.NormalizeTime(evt.PreferredTime))

	subject := fmt.Sprintf("New booking request - %s", evt.CustomerName)
	body := fmt.Sprintf(`A new booking request is waiting for confirmation.

Customer: %s
Email: %s
Phone: %s
Service: %s
Location: %s
When: %s
Notes: %s
`, evt.CustomerName, evt.CustomerEmail, orDash(evt.CustomerPhone), service, branch, orDash(when), orDash(evt.Notes))
	if s.cfg.PublicBaseURL != "" {
		body += fmt.Sprintf("\nReview it at %s/admin/bookings/%s\n", s.cfg.PublicBaseURL, url.PathEscape(evt.BookingID))
	}

	if err := s.email.Send(ctx, EmailMessage{
		To: s.cfg.StaffEmail, Subject: subject, Body: body,
		ReplyTo: evt.CustomerEmail, ReplyToName: evt.CustomerName,
	}); err != nil {
		return fmt.Errorf("notify: booking %s: %w", evt.BookingID, err)
	}
	s.logger.Info("booking notification sent", "booking_id", evt.BookingID)
	return nil
}

// NotifyNewContact tells staff about a contact message or service request.
func (s *Service) NotifyNewContact(ctx context.Context, evt events.ContactReceivedV1) error {
	if s.cfg.StaffEmail == "" {
		s.logger.Debug("notify: staff email not configured, skipping contact notification", "message_id", evt.MessageID)
		return nil
	}

	var subject, body string
	switch evt.Kind {
	case events.KindServiceRequest:
		subject = fmt.Sprintf("Service request (%s) - %s", orDash(evt.Urgency), evt.Name)
		body = fmt.Sprintf(`A new service request was submitted.

Name: %s
Email: %s
Phone: %s
Service: %s
Urgency: %s
Preferred date: %s

%s
`, evt.Name, evt.Email, orDash(evt.Phone), evt.ServiceType, orDash(evt.Urgency), orDash(evt.PreferredDate), evt.Message)
	default:
		subject = fmt.Sprintf("Contact message: %s", orDash(evt.Subject))
		body = fmt.Sprintf(`A new contact message was received.

Name: %s
Email: %s
Phone: %s
Subject: %s

%s
`, evt.Name, evt.Email, orDash(evt.Phone), orDash(evt.Subject), evt.Message)
	}

	if err := s.email.Send(ctx, EmailMessage{
		To: s.cfg.StaffEmail, Subject: subject, Body: body,
		ReplyTo: evt.Email, ReplyToName: evt.Name,
	}); err != nil {
		return fmt.Errorf("notify: contact %s: %w", evt.MessageID, err)
	}
	s.logger.Info("contact notification sent", "message_id", evt.MessageID, "kind", evt.Kind)
	return nil
}

// SendPasswordReset mails a reset link for token to email.
func (s *Service) SendPasswordReset(ctx context.Context, email, token string) error {
	link := s.cfg.PublicBaseURL + "/reset-password?token=" + url.QueryEscape(token)
	body := fmt.Sprintf(`We received a request to reset your password.

Open this link to choose a new one:
%s

If you did not ask for this, you can ignore this email.
`, link)
	if err := s.email.Send(ctx, EmailMessage{To: email, Subject: "Reset your password", Body: body}); err != nil {
		return fmt.Errorf("notify: password reset: %w", err)
	}
	return nil
}
