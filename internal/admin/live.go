package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
)

// LiveUpdate is one coalesced push to a dashboard viewer. Counts only holds
// the tables that changed since the previous push.
type LiveUpdate struct {
	Type          string            `json:"type"`
	Notifications []*respond.Notice `json:"notifications"`
	Counts        map[string]int64  `json:"counts"`
	At            time.Time         `json:"at"`
}

var liveTables = []string{gateway.TableBookings, gateway.TableContactMessages}

func liveNotice(table string, n int) *respond.Notice {
	switch table {
	case gateway.TableBookings:
		if n == 1 {
			return respond.NewNotice(respond.LevelSuccess, "New booking received!", respond.DismissBrowser)
		}
		return respond.NewNotice(respond.LevelSuccess, strconv.Itoa(n)+" new bookings received!", respond.DismissBrowser)
	default:
		if n == 1 {
			return respond.NewNotice(respond.LevelInfo, "New contact message received!", respond.DismissBrowser)
		}
		return respond.NewNotice(respond.LevelInfo, strconv.Itoa(n)+" new contact messages received!", respond.DismissBrowser)
	}
}

// LiveFeed turns inserted bookings and messages into periodic dashboard updates.
type LiveFeed struct {
	svc      *Service
	interval time.Duration
	now      func() time.Time
}

// NewLiveFeed creates a feed that pushes at most once per interval. A
// non-positive interval means two seconds.
func NewLiveFeed(svc *Service, interval time.Duration) *LiveFeed {
	if svc == nil {
		panic("admin: service required")
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &LiveFeed{svc: svc, interval: interval, now: time.Now}
}

// Run subscribes to inserts and calls push at most once per interval with
// everything that arrived since the last push. It returns when ctx is done,
// ended is closed, or push fails.
func (f *LiveFeed) Run(ctx context.Context, ended <-chan struct{}, push func(LiveUpdate) error) error {
	bookings, err := f.svc.source.SubscribeChanges(gateway.TableBookings, gateway.MaskInsert)
	if err != nil {
		return fmt.Errorf("admin: subscribe bookings: %w", err)
	}
	defer bookings.Close()
	messages, err := f.svc.source.SubscribeChanges(gateway.TableContactMessages, gateway.MaskInsert)
	if err != nil {
		return fmt.Errorf("admin: subscribe messages: %w", err)
	}
	defer messages.Close()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	pending := make(map[string]int, len(liveTables))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ended:
			return nil
		case ev, ok := <-bookings.Events():
			if !ok {
				return nil
			}
			pending[ev.Table]++
		case ev, ok := <-messages.Events():
			if !ok {
				return nil
			}
			pending[ev.Table]++
		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			update, err := f.drain(ctx, pending)
			if err != nil {
				return err
			}
			clear(pending)
			if err := push(update); err != nil {
				return err
			}
		}
	}
}

func (f *LiveFeed) drain(ctx context.Context, pending map[string]int) (LiveUpdate, error) {
	update := LiveUpdate{Type: "update", Counts: make(map[string]int64, len(pending)), At: f.now().UTC()}
	for _, table := range liveTables {
		n := pending[table]
		if n == 0 {
			continue
		}
		update.Notifications = append(update.Notifications, liveNotice(table, n))
		count, err := f.svc.Count(ctx, table)
		if errors.Is(err, context.Canceled) {
			return LiveUpdate{}, err
		}
		if err != nil {
			f.svc.logger.Warn("live feed count failed", "table", table, "error", err)
			continue
		}
		update.Counts[table] = count
	}
	return update, nil
}
