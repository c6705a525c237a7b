package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// ChangeChannel is the Postgres NOTIFY channel fed by the table_changes trigger.
const ChangeChannel = "table_changes"

// ChangeType is the kind of row change.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// EventMask selects which change types a subscription receives.
type EventMask uint8

const (
	MaskInsert EventMask = 1 << iota
	MaskUpdate
	MaskDelete

	MaskAll = MaskInsert | MaskUpdate | MaskDelete
)

func (m EventMask) has(t ChangeType) bool {
	switch t {
	case ChangeInsert:
		return m&MaskInsert != 0
	case ChangeUpdate:
		return m&MaskUpdate != 0
	case ChangeDelete:
		return m&MaskDelete != 0
	}
	return false
}

// ChangeEvent describes one committed row change.
type ChangeEvent struct {
	Table string     `json:"table"`
	Type  ChangeType `json:"type"`
	ID    string     `json:"id"`
	At    time.Time  `json:"at"`
}

// NotificationSource yields raw NOTIFY payloads. A nil notification means
// the connection was re-established and events may have been missed.
type NotificationSource interface {
	Notifications() <-chan *pq.Notification
}

// Hub fans table change notifications out to subscriptions.
type Hub struct {
	fan    fanout[ChangeEvent]
	logger *logging.Logger
	now    func() time.Time
}

// NewHub creates an idle hub. Call Run to start consuming a source.
func NewHub(logger *logging.Logger, onDrop func(table string)) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Hub{logger: logger, now: time.Now}
	if onDrop != nil {
		h.fan.onDrop = func(ev ChangeEvent) { onDrop(ev.Table) }
	}
	return h
}

// Subscribe registers interest in changes to table of the kinds in mask.
func (h *Hub) Subscribe(table string, mask EventMask, buffer int) (*Subscription[ChangeEvent], error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if mask == 0 {
		mask = MaskAll
	}
	return h.fan.subscribe(buffer, func(ev ChangeEvent) bool {
		return ev.Table == table && mask.has(ev.Type)
	}), nil
}

// Publish delivers ev to matching subscriptions.
func (h *Hub) Publish(ev ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = h.now().UTC()
	}
	h.fan.publish(ev)
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int { return h.fan.size() }

// Run consumes src until ctx is cancelled, then closes every subscription.
func (h *Hub) Run(ctx context.Context, src NotificationSource) error {
	defer h.fan.closeAll()
	notifications := src.Notifications()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if n == nil {
				h.logger.Info("realtime listener reconnected")
				continue
			}
			ev, err := ParseChange(n.Extra)
			if err != nil {
				h.logger.Warn("realtime: bad payload", "error", err, "channel", n.Channel)
				continue
			}
			h.Publish(ev)
		}
	}
}

// ParseChange decodes a table_changes NOTIFY payload.
func ParseChange(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("gateway: parse change: %w", err)
	}
	if ev.Table == "" || ev.Type == "" {
		return ChangeEvent{}, fmt.Errorf("gateway: parse change: missing table or type")
	}
	return ev, nil
}

// ListenerSource adapts a lib/pq Listener to NotificationSource.
type ListenerSource struct {
	listener *pq.Listener
}

// NewListenerSource opens a dedicated LISTEN connection on ChangeChannel.
func NewListenerSource(dsn string, logger *logging.Logger) (*ListenerSource, error) {
	if logger == nil {
		logger = logging.Default()
	}
	l := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("realtime listener event", "event", int(ev), "error", err)
		}
	})
	if err := l.Listen(ChangeChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("gateway: listen %s: %w", ChangeChannel, err)
	}
	return &ListenerSource{listener: l}, nil
}

func (s *ListenerSource) Notifications() <-chan *pq.Notification { return s.listener.Notify }

// KeepAlive pings the listener connection until ctx is done.
func (s *ListenerSource) KeepAlive(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.listener.Ping()
		}
	}
}

func (s *ListenerSource) Close() error { return s.listener.Close() }
