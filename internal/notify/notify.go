// Package notify sends desktop notifications about themeprefd events over
// the freedesktop notification interface.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// Freedesktop notification service.
const (
	Interface = "org.freedesktop.Notifications"
	Path      = "/org/freedesktop/Notifications"
	BusName   = "org.freedesktop.Notifications"
)

// Level indicates the severity of a notification.
type Level int

const (
	// LevelInfo maps to low urgency.
	LevelInfo Level = iota
	// LevelWarning maps to normal urgency.
	LevelWarning
	// LevelError maps to critical urgency.
	LevelError
)

// Urgency returns the freedesktop urgency byte for l.
func (l Level) Urgency() byte {
	switch l {
	case LevelInfo:
		return 0
	case LevelError:
		return 2
	default:
		return 1
	}
}

// Icon returns a themed icon name for l.
func (l Level) Icon() string {
	switch l {
	case LevelInfo:
		return "dialog-information"
	case LevelError:
		return "dialog-error"
	default:
		return "dialog-warning"
	}
}

// Message is the argument list of a Notify call.
type Message struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Sender delivers a Message and returns the server-assigned id.
type Sender interface {
	Send(ctx context.Context, msg Message) (uint32, error)
}

// BusSender sends notifications on the session bus.
type BusSender struct {
	conn *dbus.Conn
}

// NewBusSender uses the shared session bus connection.
func NewBusSender() (*BusSender, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &BusSender{conn: conn}, nil
}

// Send calls org.freedesktop.Notifications.Notify.
func (s *BusSender) Send(ctx context.Context, msg Message) (uint32, error) {
	actions := msg.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := msg.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	var id uint32
	err := s.conn.Object(BusName, Path).CallWithContext(ctx, Interface+".Notify", 0,
		msg.AppName, msg.ReplacesID, msg.AppIcon, msg.Summary, msg.Body,
		actions, hints, msg.ExpireTimeout).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}

// Notifier sends themeprefd notifications, dropping repeats of the same key
// within a minimum interval.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sender Sender
	app    string

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	enabled        bool
	now            func() time.Time
}

// NewNotifier creates a Notifier for app. A nil sender disables sending.
func NewNotifier(app string, sender Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		sender:         sender,
		app:            app,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
		now:            time.Now,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications with the
// same key.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless it is disabled or rate-limited.
// Delivery failures are logged.
func (n *Notifier) Notify(key, summary, body string, level Level) {
	n.mu.Lock()
	if !n.enabled || n.sender == nil {
		n.mu.Unlock()
		return
	}
	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("notification rate-limited", "key", key)
		return
	}
	n.lastNotifyTime[key] = now
	sender := n.sender
	n.mu.Unlock()

	msg := Message{
		AppName: n.app,
		AppIcon: level.Icon(),
		Summary: summary,
		Body:    body,
		Hints: map[string]dbus.Variant{
			"urgency":       dbus.MakeVariant(level.Urgency()),
			"category":      dbus.MakeVariant("device"),
			"transient":     dbus.MakeVariant(true),
			"desktop-entry": dbus.MakeVariant(n.app),
		},
		ExpireTimeout: 5000,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := sender.Send(ctx, msg); err != nil {
		n.logger.Debug("failed to send notification", "key", key, "error", err)
	}
}

// NotifyConfigReloaded reports a successful config reload.
func (n *Notifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration Reloaded",
		n.app+" configuration has been reloaded.", LevelInfo)
}

// NotifyConfigError reports a config file that failed to load.
func (n *Notifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error",
		"Failed to reload configuration: "+err.Error(), LevelWarning)
}

// NotifyStorageUnavailable reports that the preference will not be saved.
func (n *Notifier) NotifyStorageUnavailable(path string) {
	body := "The theme preference cannot be saved and will reset on restart."
	if path != "" {
		body += " (" + path + ")"
	}
	n.Notify("storage-unavailable", "Theme Preference Not Saved", body, LevelWarning)
}
