package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/wolfman30/quickie-platform/internal/gateway"
)

// DefaultAvatar is shown for identities without an avatar.
const DefaultAvatar = "/images/default-avatar.png"

var roleLevels = map[gateway.Role]int{
	gateway.RoleCustomer: 1,
	gateway.RoleStaff:    2,
	gateway.RoleAdmin:    3,
}

// RoleLevel returns the rank of role; unknown roles rank below customer.
func RoleLevel(role gateway.Role) int {
	return roleLevels[role]
}

// Tracker holds the identity for one request or connection. It is created
// per scope and never shared globally.
type Tracker struct {
	mu      sync.RWMutex
	current *gateway.Identity
	ended   chan struct{}
	once    sync.Once
}

// NewTracker starts tracking identity, which may be nil for anonymous visitors.
func NewTracker(identity *gateway.Identity) *Tracker {
	t := &Tracker{ended: make(chan struct{})}
	if identity != nil {
		cp := *identity
		t.current = &cp
	}
	return t
}

// Current returns a copy of the tracked identity, or nil.
func (t *Tracker) Current() *gateway.Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return nil
	}
	cp := *t.current
	return &cp
}

// IsAuthenticated reports whether an identity is present.
func (t *Tracker) IsAuthenticated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current != nil
}

// HasRole reports whether the identity's role ranks at or above required.
func (t *Tracker) HasRole(required gateway.Role) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return false
	}
	need := RoleLevel(required)
	return need > 0 && RoleLevel(t.current.Role) >= need
}

// DisplayName prefers the full name, then the email local part, then "User".
// Anonymous visitors are "Guest".
func (t *Tracker) DisplayName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return "Guest"
	}
	if name := strings.TrimSpace(t.current.FullName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(t.current.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

// AvatarURL returns the identity's avatar or the default image.
func (t *Tracker) AvatarURL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil || strings.TrimSpace(t.current.AvatarURL) == "" {
		return DefaultAvatar
	}
	return t.current.AvatarURL
}

// Ended is closed once the tracked session signs out.
func (t *Tracker) Ended() <-chan struct{} { return t.ended }

// Apply folds one session event into the tracked state. Events for other
// users are ignored.
func (t *Tracker) Apply(ev gateway.SessionEvent) {
	t.mu.Lock()
	if t.current == nil || ev.UserID != t.current.ID {
		t.mu.Unlock()
		return
	}
	switch ev.Type {
	case gateway.SignedOut:
		t.current = nil
		t.mu.Unlock()
		t.once.Do(func() { close(t.ended) })
		return
	case gateway.UserUpdated:
		if ev.Identity != nil {
			cp := *ev.Identity
			t.current = &cp
		}
	}
	t.mu.Unlock()
}

// Watch applies session events until ctx is done or the subscription closes.
// The subscription is closed on return.
func (t *Tracker) Watch(ctx context.Context, sub *gateway.Subscription[gateway.SessionEvent]) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			t.Apply(ev)
		}
	}
}

// View is the JSON shape of the tracked identity for pages.
type View struct {
	Authenticated bool              `json:"authenticated"`
	User          *gateway.Identity `json:"user,omitempty"`
	DisplayName   string            `json:"display_name"`
	AvatarURL     string            `json:"avatar_url"`
	IsStaff       bool              `json:"is_staff"`
}

// View snapshots the tracker for rendering.
func (t *Tracker) View() View {
	return View{
		Authenticated: t.IsAuthenticated(),
		User:          t.Current(),
		DisplayName:   t.DisplayName(),
		AvatarURL:     t.AvatarURL(),
		IsStaff:       t.HasRole(gateway.RoleStaff),
	}
}
