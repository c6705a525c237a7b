package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/quickie-platform/internal/events"
)

type mockEmailSender struct {
	sent    []EmailMessage
	callErr error
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotifyNewBooking(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, Config{StaffEmail: "staff@quickie.ph", PublicBaseURL: "https://quickie.ph/"}, nil)

	err := svc.NotifyNewBooking(t.Context(), events.BookingCreatedV1{
		BookingID: "bk-1", CustomerName: "Ana", CustomerEmail: "ana@example.com",
		ServiceName: "Oil Change", BranchName: "Makati",
		PreferredDate: "2026-03-11", PreferredTime: "10:30:00",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "staff@quickie.ph", msg.To)
	assert.Equal(t, "ana@example.com", msg.ReplyTo)
	assert.Equal(t, "Ana", msg.ReplyToName)
	assert.Equal(t, "New booking request - Ana", msg.Subject)
	assert.Contains(t, msg.Body, "When: Wednesday, March 11, 2026 at 10:30 AM")
	assert.Contains(t, msg.Body, "Phone: -")
	assert.Contains(t, msg.Body, "https://quickie.ph/admin/bookings/bk-1")
}

func TestNotifySkipsWithoutStaffEmail(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, Config{}, nil)
	require.NoError(t, svc.NotifyNewBooking(t.Context(), events.BookingCreatedV1{BookingID: "bk-1"}))
	require.NoError(t, svc.NotifyNewContact(t.Context(), events.ContactReceivedV1{MessageID: "m-1"}))
	assert.Empty(t, sender.sent)
}

func TestNotifyNewContactKinds(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, Config{StaffEmail: "staff@quickie.ph"}, nil)

	require.NoError(t, svc.NotifyNewContact(t.Context(), events.ContactReceivedV1{
		Kind: events.KindGeneral, Name: "Ben", Email: "ben@example.com", Subject: "General Inquiry", Message: "Hello",
	}))
	require.NoError(t, svc.NotifyNewContact(t.Context(), events.ContactReceivedV1{
		Kind: events.KindServiceRequest, Name: "Cy", Email: "cy@example.com", ServiceType: "aircon", Urgency: "urgent", Message: "Not cooling",
	}))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Contact message: General Inquiry", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Hello")
	assert.Equal(t, "ben@example.com", sender.sent[0].ReplyTo)
	assert.Equal(t, "Service request (urgent) - Cy", sender.sent[1].Subject)
	assert.Contains(t, sender.sent[1].Body, "Service: aircon")
}

func TestHandleDecodesEntries(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, Config{StaffEmail: "staff@quickie.ph"}, nil)

	entry, err := events.NewEntry(events.TypeContactReceived, events.ContactReceivedV1{Kind: events.KindGeneral, Name: "Ben", Message: "Hi"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Handle(t.Context(), entry))
	require.NoError(t, svc.Handle(t.Context(), events.Entry{Type: "unknown.v1"}))
	assert.Len(t, sender.sent, 1)

	assert.Error(t, svc.Handle(t.Context(), events.Entry{Type: events.TypeBookingCreated, Payload: []byte("{")}))
}

func TestSendPasswordReset(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, Config{PublicBaseURL: "https://quickie.ph"}, nil)

	require.NoError(t, svc.SendPasswordReset(t.Context(), "ana@example.com", "tok en"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "https://quickie.ph/reset-password?token=tok+en")

	sender.callErr = errors.New("smtp down")
	assert.Error(t, svc.SendPasswordReset(t.Context(), "ana@example.com", "x"))
}
