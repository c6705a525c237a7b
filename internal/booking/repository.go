package booking

import (
	"context"
	"fmt"

	"github.com/wolfman30/quickie-platform/internal/gateway"
)

// Rows is the slice of the gateway the booking flow reads and writes through.
type Rows interface {
	Query(ctx context.Context, table string, filters gateway.FilterSet, order gateway.Ordering, limit int) ([]gateway.Row, error)
	Insert(ctx context.Context, table string, record gateway.Row) (gateway.Row, error)
}

// Repository loads services and branches and stores bookings.
type Repository struct {
	rows Rows
}

// NewRepository creates a repository over the gateway.
func NewRepository(rows Rows) *Repository {
	if rows == nil {
		panic("booking: gateway required")
	}
	return &Repository{rows: rows}
}

// ListServices returns active services by sort order.
func (r *Repository) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.rows.Query(ctx, gateway.TableServices,
		gateway.Where(gateway.Eq("is_active", true)),
		gateway.Asc("sort_order").ThenAsc("name"), 0)
	if err != nil {
		return nil, fmt.Errorf("booking: list services: %w", err)
	}
	return gateway.DecodeRows[Service](rows)
}

// ListBranches returns active branches by name.
func (r *Repository) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := r.rows.Query(ctx, gateway.TableBranches,
		gateway.Where(gateway.Eq("is_active", true)),
		gateway.Asc("name"), 0)
	if err != nil {
		return nil, fmt.Errorf("booking: list branches: %w", err)
	}
	return gateway.DecodeRows[Branch](rows)
}

// BookedSlots returns the "HH:MM" times already taken by pending, confirmed
// or in-progress bookings.
func (r *Repository) BookedSlots(ctx context.Context, serviceID, branchID, date string) ([]string, error) {
	rows, err := r.rows.Query(ctx, gateway.TableBookings, gateway.Where(
		gateway.Eq("service_id", serviceID),
		gateway.Eq("branch_id", branchID),
		gateway.Eq("preferred_date", date),
		gateway.In("status", OccupyingStatuses...),
	), nil, 0)
	if err != nil {
		return nil, fmt.Errorf("booking: check availability: %w", err)
	}
	booked := make([]string, 0, len(rows))
	for _, row := range rows {
		if t := row.String("preferred_time"); t != "" {
			booked = append(booked, NormalizeTime(t))
		}
	}
	return booked, nil
}

// CreateBooking inserts rec and returns the stored row.
func (r *Repository) CreateBooking(ctx context.Context, rec Record) (*Record, error) {
	row := gateway.Row{
		"customer_name":  rec.CustomerName,
		"customer_email": rec.CustomerEmail,
		"customer_phone": rec.CustomerPhone,
		"service_id":     rec.ServiceID,
		"branch_id":      rec.BranchID,
		"preferred_date": rec.PreferredDate,
		"preferred_time": rec.PreferredTime,
		"notes":          rec.Notes,
		"status":         string(rec.Status),
	}
	stored, err := r.rows.Insert(ctx, gateway.TableBookings, row)
	if err != nil {
		return nil, fmt.Errorf("booking: create: %w", err)
	}
	var out Record
	if err := stored.Decode(&out); err != nil {
		return nil, fmt.Errorf("booking: create: %w", err)
	}
	out.PreferredTime = NormalizeTime(out.PreferredTime)
	return &out, nil
}
