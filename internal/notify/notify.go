// Package notify keeps the ordered queue of ephemeral, timestamped status
// messages emitted by the persistence coordinator.
package notify

import (
	"sync"
	"time"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDurationMs is applied when a caller passes a negative duration.
const DefaultDurationMs = 5000

// Notification is one queued message.
type Notification struct {
	ID         string                   `json:"id"`
	Kind       schemas.NotificationKind `json:"type"`
	Title      string                   `json:"title"`
	Message    string                   `json:"message,omitempty"`
	DurationMs int                      `json:"duration"`
	Timestamp  time.Time                `json:"timestamp"`
}

// Center is an ordered notification queue with auto-dismiss timers.
type Center struct {
	mu     sync.Mutex
	queue  []Notification
	timers map[string]*time.Timer
	closed bool
	log    *zap.Logger
}

var _ schemas.Notifier = (*Center)(nil)

// NewCenter creates an empty notification center.
func NewCenter(logger *zap.Logger) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{
		timers: make(map[string]*time.Timer),
		log:    logger.Named("notify"),
	}
}

// Notify appends a message and returns its id. durationMs > 0 schedules
// automatic removal after that delay; 0 persists until dismissed.
func (c *Center) Notify(kind schemas.NotificationKind, title, message string, durationMs int) string {
	if durationMs < 0 {
		durationMs = DefaultDurationMs
	}

	n := Notification{
		ID:         uuid.New().String(),
		Kind:       kind,
		Title:      title,
		Message:    message,
		DurationMs: durationMs,
		Timestamp:  time.Now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n.ID
	}
	c.queue = append(c.queue, n)
	if durationMs > 0 {
		c.timers[n.ID] = time.AfterFunc(time.Duration(durationMs)*time.Millisecond, func() {
			c.Dismiss(n.ID)
		})
	}
	c.mu.Unlock()

	c.log.Debug("notification queued",
		zap.String("id", n.ID),
		zap.String("kind", string(kind)),
		zap.String("title", title))
	return n.ID
}

// Dismiss removes a message unconditionally. Already-removed ids are a no-op.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.queue {
		if n.ID == id {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

// List returns the queued messages in arrival order.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.queue))
	copy(out, c.queue)
	return out
}

// Clear drops every queued message and stops their timers.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.queue = nil
}

// Close clears the queue and refuses further messages. Call on shutdown so
// no dismiss timers outlive the process.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.queue = nil
	c.closed = true
}
