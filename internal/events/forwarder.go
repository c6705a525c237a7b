package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// DeliveryHandler emits events to downstream transports.
type DeliveryHandler interface {
	Handle(ctx context.Context, entry Entry) error
}

// HandlerFunc adapts a function to DeliveryHandler.
type HandlerFunc func(ctx context.Context, entry Entry) error

func (f HandlerFunc) Handle(ctx context.Context, entry Entry) error { return f(ctx, entry) }

// Source is the slice of the gateway the forwarder reads from.
type Source interface {
	SubscribeChanges(table string, mask gateway.EventMask) (*gateway.Subscription[gateway.ChangeEvent], error)
	Query(ctx context.Context, table string, filters gateway.FilterSet, order gateway.Ordering, limit int) ([]gateway.Row, error)
}

var errRowGone = errors.New("events: changed row no longer exists")

// Forwarder turns newly inserted bookings and messages into events and hands
// them to every handler.
type Forwarder struct {
	source   Source
	claims   ClaimStore
	handlers []DeliveryHandler
	logger   *logging.Logger
	claimTTL time.Duration
	now      func() time.Time
}

// NewForwarder creates a forwarder. claims may be nil for single-instance deployments.
func NewForwarder(source Source, claims ClaimStore, logger *logging.Logger, handlers ...DeliveryHandler) *Forwarder {
	if source == nil {
		panic("events: source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Forwarder{
		source:   source,
		claims:   claims,
		handlers: handlers,
		logger:   logger,
		claimTTL: 24 * time.Hour,
		now:      time.Now,
	}
}

// Run forwards events until ctx is cancelled or the change stream closes.
func (f *Forwarder) Run(ctx context.Context) error {
	bookings, err := f.source.SubscribeChanges(gateway.TableBookings, gateway.MaskInsert)
	if err != nil {
		return fmt.Errorf("events: subscribe bookings: %w", err)
	}
	defer bookings.Close()
	messages, err := f.source.SubscribeChanges(gateway.TableContactMessages, gateway.MaskInsert)
	if err != nil {
		return fmt.Errorf("events: subscribe contact messages: %w", err)
	}
	defer messages.Close()
	requests, err := f.source.SubscribeChanges(gateway.TableServiceRequests, gateway.MaskInsert)
	if err != nil {
		return fmt.Errorf("events: subscribe service requests: %w", err)
	}
	defer requests.Close()

	for {
		var (
			ev gateway.ChangeEvent
			ok bool
		)
		select {
		case <-ctx.Done():
			return nil
		case ev, ok = <-bookings.Events():
		case ev, ok = <-messages.Events():
		case ev, ok = <-requests.Events():
		}
		if !ok {
			return nil
		}
		f.forward(ctx, ev)
	}
}

// forward claims a change only after its event is built.
func (f *Forwarder) forward(ctx context.Context, ev gateway.ChangeEvent) {
	entry, err := f.build(ctx, ev)
	if err != nil {
		f.logger.Error("failed to build event", "error", err, "table", ev.Table, "id", ev.ID)
		return
	}
	if f.claims != nil {
		claimed, err := f.claims.Claim(ctx, ev.Table+":"+ev.ID, f.claimTTL)
		if err != nil {
			f.logger.Warn("event claim failed, forwarding anyway", "error", err, "table", ev.Table, "id", ev.ID)
		} else if !claimed {
			f.logger.Debug("event already claimed", "table", ev.Table, "id", ev.ID)
			return
		}
	}
	for _, h := range f.handlers {
		if err := h.Handle(ctx, entry); err != nil {
			f.logger.Error("event delivery failed", "error", err, "event_id", entry.ID, "type", entry.Type)
		}
	}
}

func (f *Forwarder) build(ctx context.Context, ev gateway.ChangeEvent) (Entry, error) {
	row, err := f.lookup(ctx, ev.Table, ev.ID)
	if err != nil {
		return Entry{}, err
	}
	at := ev.At
	if at.IsZero() {
		at = f.now().UTC()
	}

	switch ev.Table {
	case gateway.TableBookings:
		evt := BookingCreatedV1{
			BookingID:     row.String("id"),
			CustomerName:  row.String("customer_name"),
			CustomerEmail: row.String("customer_email"),
			CustomerPhone: row.String("customer_phone"),
			ServiceID:     row.String("service_id"),
			BranchID:      row.String("branch_id"),
			PreferredDate: row.String("preferred_date"),
			PreferredTime: row.String("preferred_time"),
			Notes:         row.String("notes"),
			Status:        row.String("status"),
			OccurredAt:    at,
		}
		evt.ServiceName = f.name(ctx, gateway.TableServices, evt.ServiceID)
		evt.BranchName = f.name(ctx, gateway.TableBranches, evt.BranchID)
		return NewEntry(TypeBookingCreated, evt, at)
	case gateway.TableContactMessages:
		return NewEntry(TypeContactReceived, ContactReceivedV1{
			MessageID:  row.String("id"),
			Kind:       KindGeneral,
			Name:       row.String("name"),
			Email:      row.String("email"),
			Phone:      row.String("phone"),
			Subject:    row.String("subject"),
			Message:    row.String("message"),
			OccurredAt: at,
		}, at)
	case gateway.TableServiceRequests:
		return NewEntry(TypeContactReceived, ContactReceivedV1{
			MessageID:     row.String("id"),
			Kind:          KindServiceRequest,
			Name:          row.String("customer_name"),
			Email:         row.String("customer_email"),
			Phone:         row.String("customer_phone"),
			Message:       row.String("description"),
			ServiceType:   row.String("service_type"),
			Urgency:       row.String("urgency"),
			PreferredDate: row.String("preferred_date"),
			OccurredAt:    at,
		}, at)
	}
	return Entry{}, fmt.Errorf("events: no event for table %s", ev.Table)
}

func (f *Forwarder) lookup(ctx context.Context, table, id string) (gateway.Row, error) {
	rows, err := f.source.Query(ctx, table, gateway.Where(gateway.Eq("id", id)), nil, 1)
	if err != nil {
		return nil, fmt.Errorf("events: load %s %s: %w", table, id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %s", errRowGone, table, id)
	}
	return rows[0], nil
}

// name returns the row's name column, or "" when it cannot be loaded.
func (f *Forwarder) name(ctx context.Context, table, id string) string {
	if id == "" {
		return ""
	}
	row, err := f.lookup(ctx, table, id)
	if err != nil {
		f.logger.Debug("event name lookup failed", "error", err)
		return ""
	}
	return row.String("name")
}
