package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"market-client/internal/domain"
	"market-client/pkg/logger"
)

// NotificationCenter holds the single visible notification. Publishing
// replaces the prior one and re-arms the expiry timer; expiry clears the slot
// only when the expiring notification is still the visible one.
type NotificationCenter struct {
	clock clockwork.Clock
	ttl   time.Duration
	log   logger.Logger

	mutex       sync.Mutex
	current     *domain.Notification
	expiryTimer clockwork.Timer
	subscribers []func(*domain.Notification)
}

func NewNotificationCenter(ttl time.Duration, clock clockwork.Clock, log logger.Logger) *NotificationCenter {
	return &NotificationCenter{
		clock: clock,
		ttl:   ttl,
		log:   log,
	}
}

// Subscribe registers a callback invoked with the new notification on every
// publish and with nil on expiry.
func (n *NotificationCenter) Subscribe(fn func(*domain.Notification)) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.subscribers = append(n.subscribers, fn)
}

func (n *NotificationCenter) Publish(message string, severity domain.Severity) {
	notification := &domain.Notification{
		ID:       uuid.New().String(),
		Message:  message,
		Severity: severity,
	}

	n.mutex.Lock()
	if n.expiryTimer != nil {
		n.expiryTimer.Stop()
	}
	n.current = notification
	id := notification.ID
	n.expiryTimer = n.clock.AfterFunc(n.ttl, func() {
		n.expire(id)
	})
	subscribers := n.snapshotSubscribersLocked()
	n.mutex.Unlock()

	n.log.Info("Notification", "severity", severity, "message", message)
	for _, fn := range subscribers {
		fn(notification)
	}
}

// Current returns the visible notification, or nil.
func (n *NotificationCenter) Current() *domain.Notification {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.current
}

func (n *NotificationCenter) expire(id string) {
	n.mutex.Lock()
	if n.current == nil || n.current.ID != id {
		// A newer notification replaced the expiring one.
		n.mutex.Unlock()
		return
	}
	n.current = nil
	subscribers := n.snapshotSubscribersLocked()
	n.mutex.Unlock()

	for _, fn := range subscribers {
		fn(nil)
	}
}

func (n *NotificationCenter) snapshotSubscribersLocked() []func(*domain.Notification) {
	out := make([]func(*domain.Notification), len(n.subscribers))
	copy(out, n.subscribers)
	return out
}
