package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/quickie-platform/internal/booking"
	"github.com/wolfman30/quickie-platform/internal/contact"
	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

const (
	recentLimit    = 10
	unknownService = "Unknown Service"
	unknownBranch  = "Unknown Branch"
)

// ErrInvalidStatus is returned for status values outside the allowed set.
var ErrInvalidStatus = errors.New("admin: invalid status")

// CountedTables are the tables shown as stat cards.
var CountedTables = []string{
	gateway.TableBookings,
	gateway.TableContactMessages,
	gateway.TableProducts,
	gateway.TableServices,
	gateway.TableUsers,
}

var badgeColors = map[string]string{
	"pending":     "warning",
	"confirmed":   "info",
	"in_progress": "primary",
	"completed":   "success",
	"cancelled":   "danger",
	"new":         "info",
	"replied":     "success",
	"resolved":    "success",
	"archived":    "secondary",
}

// BadgeColor maps a booking or message status to its badge colour.
func BadgeColor(status string) string {
	if c, ok := badgeColors[status]; ok {
		return c
	}
	return "secondary"
}

// StatusLabel capitalises the first letter of a status.
func StatusLabel(status string) string {
	if status == "" {
		return ""
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

// Source is the slice of the gateway the dashboard reads and writes through.
type Source interface {
	Query(ctx context.Context, table string, filters gateway.FilterSet, order gateway.Ordering, limit int) ([]gateway.Row, error)
	Count(ctx context.Context, table string, filters gateway.FilterSet) (int64, error)
	Update(ctx context.Context, table, id string, patch gateway.Row) (gateway.Row, error)
	SubscribeChanges(table string, mask gateway.EventMask) (*gateway.Subscription[gateway.ChangeEvent], error)
}

// BookingItem is a booking row with its service and branch joined.
type BookingItem struct {
	booking.Record
	ServiceName        string `json:"service_name"`
	ServiceDescription string `json:"service_description,omitempty"`
	BranchName         string `json:"branch_name"`
	BranchAddress      string `json:"branch_address,omitempty"`
	StatusLabel        string `json:"status_label"`
	Badge              string `json:"badge"`
}

// MessageItem is a contact message with its badge.
type MessageItem struct {
	contact.Message
	StatusLabel string `json:"status_label"`
	Badge       string `json:"badge"`
}

// Overview is the dashboard landing data.
type Overview struct {
	Counts         map[string]int64 `json:"counts"`
	RecentBookings []BookingItem    `json:"recent_bookings"`
	RecentMessages []MessageItem    `json:"recent_messages"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// Service runs the dashboard queries.
type Service struct {
	source Source
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates the dashboard service. It panics without a source.
func NewService(source Source, logger *logging.Logger) *Service {
	if source == nil {
		panic("admin: source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{source: source, logger: logger, now: time.Now}
}

// Overview issues the counts and recent lists in parallel. Any failure fails the whole overview.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	counts := make([]int64, len(CountedTables))
	var (
		bookings []BookingItem
		messages []MessageItem
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range CountedTables {
		g.Go(func() error {
			n, err := s.source.Count(gctx, table, nil)
			if err != nil {
				return fmt.Errorf("admin: count %s: %w", table, err)
			}
			counts[i] = n
			return nil
		})
	}
	g.Go(func() error {
		var err error
		bookings, err = s.RecentBookings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = s.RecentMessages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Overview{
		Counts:         make(map[string]int64, len(CountedTables)),
		RecentBookings: bookings,
		RecentMessages: messages,
		GeneratedAt:    s.now().UTC(),
	}
	for i, table := range CountedTables {
		out.Counts[table] = counts[i]
	}
	return out, nil
}

// Count returns the row count of one stat card table.
func (s *Service) Count(ctx context.Context, table string) (int64, error) {
	n, err := s.source.Count(ctx, table, nil)
	if err != nil {
		return 0, fmt.Errorf("admin: count %s: %w", table, err)
	}
	return n, nil
}

// RecentBookings returns the newest bookings with service and branch names.
func (s *Service) RecentBookings(ctx context.Context) ([]BookingItem, error) {
	rows, err := s.source.Query(ctx, gateway.TableBookings, nil, gateway.Desc("created_at"), recentLimit)
	if err != nil {
		return nil, fmt.Errorf("admin: recent bookings: %w", err)
	}
	records, err := gateway.DecodeRows[booking.Record](rows)
	if err != nil {
		return nil, fmt.Errorf("admin: decode bookings: %w", err)
	}
	return s.joinBookings(ctx, records)
}

// RecentMessages returns the newest contact messages.
func (s *Service) RecentMessages(ctx context.Context) ([]MessageItem, error) {
	rows, err := s.source.Query(ctx, gateway.TableContactMessages, nil, gateway.Desc("created_at"), recentLimit)
	if err != nil {
		return nil, fmt.Errorf("admin: recent messages: %w", err)
	}
	msgs, err := gateway.DecodeRows[contact.Message](rows)
	if err != nil {
		return nil, fmt.Errorf("admin: decode messages: %w", err)
	}
	out := make([]MessageItem, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageItem(m))
	}
	return out, nil
}

func messageItem(m contact.Message) MessageItem {
	return MessageItem{Message: m, StatusLabel: StatusLabel(m.Status), Badge: BadgeColor(m.Status)}
}

type named struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

func (s *Service) lookup(ctx context.Context, table string, ids []string) (map[string]named, error) {
	out := make(map[string]named, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.source.Query(ctx, table, gateway.Where(gateway.In("id", ids...)), nil, 0)
	if err != nil {
		return nil, fmt.Errorf("admin: lookup %s: %w", table, err)
	}
	items, err := gateway.DecodeRows[named](rows)
	if err != nil {
		return nil, fmt.Errorf("admin: decode %s: %w", table, err)
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func uniqueIDs(records []booking.Record, pick func(booking.Record) string) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		id := pick(r)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (s *Service) joinBookings(ctx context.Context, records []booking.Record) ([]BookingItem, error) {
	services, err := s.lookup(ctx, gateway.TableServices, uniqueIDs(records, func(r booking.Record) string { return r.ServiceID }))
	if err != nil {
		return nil, err
	}
	branches, err := s.lookup(ctx, gateway.TableBranches, uniqueIDs(records, func(r booking.Record) string { return r.BranchID }))
	if err != nil {
		return nil, err
	}
	out := make([]BookingItem, 0, len(records))
	for _, r := range records {
		item := BookingItem{
			Record:      r,
			ServiceName: unknownService,
			BranchName:  unknownBranch,
			StatusLabel: StatusLabel(string(r.Status)),
			Badge:       BadgeColor(string(r.Status)),
		}
		if svc, ok := services[r.ServiceID]; ok {
			item.ServiceName = svc.Name
			item.ServiceDescription = svc.Description
		}
		if br, ok := branches[r.BranchID]; ok {
			item.BranchName = br.Name
			item.BranchAddress = br.Address
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) one(ctx context.Context, table, id string) (gateway.Row, error) {
	rows, err := s.source.Query(ctx, table, gateway.Where(gateway.Eq("id", id)), nil, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &gateway.QueryError{Code: gateway.CodeNoRows, Message: "no rows", Table: table, Op: "select", Err: gateway.ErrNotFound}
	}
	return rows[0], nil
}

// Booking returns one booking with service and branch details.
func (s *Service) Booking(ctx context.Context, id string) (*BookingItem, error) {
	row, err := s.one(ctx, gateway.TableBookings, id)
	if err != nil {
		return nil, fmt.Errorf("admin: booking %s: %w", id, err)
	}
	var rec booking.Record
	if err := row.Decode(&rec); err != nil {
		return nil, fmt.Errorf("admin: decode booking: %w", err)
	}
	items, err := s.joinBookings(ctx, []booking.Record{rec})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// UpdateBookingStatus applies a new status from the booking status set.
func (s *Service) UpdateBookingStatus(ctx context.Context, id, status string) (*BookingItem, error) {
	if !booking.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	if _, err := s.source.Update(ctx, gateway.TableBookings, id, gateway.Row{"status": status}); err != nil {
		return nil, fmt.Errorf("admin: update booking %s: %w", id, err)
	}
	s.logger.Info("booking status updated", "booking_id", id, "status", status)
	return s.Booking(ctx, id)
}

// Message returns one contact message.
func (s *Service) Message(ctx context.Context, id string) (*MessageItem, error) {
	row, err := s.one(ctx, gateway.TableContactMessages, id)
	if err != nil {
		return nil, fmt.Errorf("admin: message %s: %w", id, err)
	}
	var m contact.Message
	if err := row.Decode(&m); err != nil {
		return nil, fmt.Errorf("admin: decode message: %w", err)
	}
	item := messageItem(m)
	return &item, nil
}

// UpdateMessageStatus applies a new status from the message status set.
func (s *Service) UpdateMessageStatus(ctx context.Context, id, status string) (*MessageItem, error) {
	if !contact.ValidMessageStatus(status) {
		return nil, ErrInvalidStatus
	}
	row, err := s.source.Update(ctx, gateway.TableContactMessages, id, gateway.Row{"status": status})
	if err != nil {
		return nil, fmt.Errorf("admin: update message %s: %w", id, err)
	}
	var m contact.Message
	if err := row.Decode(&m); err != nil {
		return nil, fmt.Errorf("admin: decode message: %w", err)
	}
	s.logger.Info("message status updated", "message_id", id, "status", status)
	item := messageItem(m)
	return &item, nil
}

// Export is the downloadable dashboard snapshot.
type Export struct {
	Bookings   []BookingItem    `json:"bookings"`
	Contacts   []MessageItem    `json:"contacts"`
	Stats      map[string]int64 `json:"stats"`
	ExportDate time.Time        `json:"exportDate"`
}

// Export builds the export document from a fresh overview.
func (s *Service) Export(ctx context.Context) (*Export, string, error) {
	ov, err := s.Overview(ctx)
	if err != nil {
		return nil, "", err
	}
	doc := &Export{
		Bookings:   ov.RecentBookings,
		Contacts:   ov.RecentMessages,
		Stats:      ov.Counts,
		ExportDate: ov.GeneratedAt,
	}
	return doc, "quickie-data-" + ov.GeneratedAt.Format("2006-01-02") + ".json", nil
}
