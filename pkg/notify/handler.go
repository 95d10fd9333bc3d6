package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoSubscriptions is returned when no subscription capability is configured.
var ErrNoSubscriptions = errors.New("push subscriptions not supported")

// Notifier displays and dismisses notifications.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Close(ctx context.Context, n Notification) error
}

// Navigator opens a window on a path of the application.
type Navigator interface {
	OpenWindow(ctx context.Context, path string) error
}

// Subscription is an opaque push subscription owned by the host.
type Subscription json.RawMessage

// Subscriptions is the host's push-subscription capability. Key exchange
// happens entirely on the host side.
type Subscriptions interface {
	Current(ctx context.Context) (Subscription, error)
	Subscribe(ctx context.Context) (Subscription, error)
	Unsubscribe(ctx context.Context) (bool, error)
}

// PushEvent is a received push message. Data may be empty.
type PushEvent struct {
	Data []byte
}

// ClickEvent is a click on a shown notification. Action is empty when
// the notification body itself was clicked.
type ClickEvent struct {
	Action       string
	Notification Notification
}

// Handler reacts to push and click events.
type Handler struct {
	Notifier      Notifier
	Navigator     Navigator // optional
	Subscriptions Subscriptions
	Logger        zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// HandlePush shows the trending notification. A non-empty payload
// replaces the body text.
func (h *Handler) HandlePush(ctx context.Context, ev PushEvent) (Notification, error) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	n := NewTrendingNotification(now())
	if text := strings.TrimSpace(string(ev.Data)); text != "" {
		n.Body = text
	}

	h.Logger.Info().Str("title", n.Title).Msg("Push notification received")

	if h.Notifier == nil {
		return n, nil
	}
	if err := h.Notifier.Show(ctx, n); err != nil {
		NotificationsShown.WithLabelValues("error").Inc()
		return n, fmt.Errorf("show notification: %w", err)
	}
	NotificationsShown.WithLabelValues("ok").Inc()
	return n, nil
}

// HandleClick closes the notification and opens the destination of the
// clicked action: TrendingPath for explore, HomePath for a plain click,
// nothing for close. It returns the opened path, or "" when none.
func (h *Handler) HandleClick(ctx context.Context, ev ClickEvent) (string, error) {
	if h.Notifier != nil {
		if err := h.Notifier.Close(ctx, ev.Notification); err != nil {
			h.Logger.Warn().Err(err).Msg("Failed to close notification")
		}
	}

	var path string
	switch ev.Action {
	case ActionExplore:
		path = TrendingPath
	case ActionClose:
	default:
		path = HomePath
	}
	NotificationClicks.WithLabelValues(clickLabel(ev.Action)).Inc()

	h.Logger.Debug().Str("action", ev.Action).Str("path", path).Msg("Notification clicked")

	if path == "" || h.Navigator == nil {
		return path, nil
	}
	if err := h.Navigator.OpenWindow(ctx, path); err != nil {
		return path, fmt.Errorf("open window %s: %w", path, err)
	}
	return path, nil
}

// Subscribe passes through to the host capability.
func (h *Handler) Subscribe(ctx context.Context) (Subscription, error) {
	if h.Subscriptions == nil {
		return nil, ErrNoSubscriptions
	}
	return h.Subscriptions.Subscribe(ctx)
}

// CurrentSubscription passes through to the host capability.
func (h *Handler) CurrentSubscription(ctx context.Context) (Subscription, error) {
	if h.Subscriptions == nil {
		return nil, ErrNoSubscriptions
	}
	return h.Subscriptions.Current(ctx)
}

// Unsubscribe passes through to the host capability.
func (h *Handler) Unsubscribe(ctx context.Context) (bool, error) {
	if h.Subscriptions == nil {
		return false, ErrNoSubscriptions
	}
	return h.Subscriptions.Unsubscribe(ctx)
}

func clickLabel(action string) string {
	switch action {
	case ActionExplore, ActionClose:
		return action
	default:
		return "default"
	}
}

// Inbox is a Notifier that keeps the most recent notifications in memory.
type Inbox struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

// NewInbox keeps at most max notifications (minimum 1).
func NewInbox(max int) *Inbox {
	if max < 1 {
		max = 1
	}
	return &Inbox{max: max}
}

// Show appends n, dropping the oldest entry when full.
func (b *Inbox) Show(ctx context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if len(b.items) > b.max {
		b.items = b.items[len(b.items)-b.max:]
	}
	return nil
}

// Close is a no-op; shown notifications stay in the inbox history.
func (b *Inbox) Close(ctx context.Context, n Notification) error {
	return nil
}

// List returns the kept notifications, oldest first.
func (b *Inbox) List() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notification(nil), b.items...)
}

// MemorySubscriptions holds a single subscription set by the host.
type MemorySubscriptions struct {
	mu      sync.Mutex
	pending Subscription
	current Subscription
}

// Offer makes sub the subscription returned by the next Subscribe.
func (m *MemorySubscriptions) Offer(sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = sub
}

// Current returns the active subscription, or nil.
func (m *MemorySubscriptions) Current(ctx context.Context) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

// Subscribe activates the offered subscription.
func (m *MemorySubscriptions) Subscribe(ctx context.Context) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil, errors.New("no subscription offered")
	}
	m.current = m.pending
	return m.current, nil
}

// Unsubscribe drops the active subscription. Returns false if there was none.
func (m *MemorySubscriptions) Unsubscribe(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.current != nil
	m.current = nil
	return had, nil
}
