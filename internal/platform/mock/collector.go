package mock

import (
	"context"
	"sync"

	"github.com/zjrosen/clanbot/internal/platform"
)

type attachmentWaiter struct {
	channelID string
	userID    string
	ch        chan platform.Attachment
}

type buttonWaiter struct {
	customID string
	userID   string
	ch       chan struct{}
}

// Collector is a platform.Collector driven by the test.
type Collector struct {
	mu          sync.Mutex
	attachments []*attachmentWaiter
	buttons     []*buttonWaiter
	changed     chan struct{}
}

var _ platform.Collector = (*Collector)(nil)

// NewCollector creates a collector with no waiters.
func NewCollector() *Collector {
	return &Collector{changed: make(chan struct{}, 1)}
}

func (c *Collector) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *Collector) AwaitAttachment(ctx context.Context, channelID, userID string) (platform.Attachment, error) {
	w := &attachmentWaiter{channelID: channelID, userID: userID, ch: make(chan platform.Attachment, 1)}
	c.mu.Lock()
	c.attachments = append(c.attachments, w)
	c.mu.Unlock()
	c.notify()

	defer c.removeAttachment(w)

	select {
	case a := <-w.ch:
		return a, nil
	case <-ctx.Done():
		return platform.Attachment{}, ctx.Err()
	}
}

func (c *Collector) AwaitButton(ctx context.Context, customID, userID string) error {
	w := &buttonWaiter{customID: customID, userID: userID, ch: make(chan struct{}, 1)}
	c.mu.Lock()
	c.buttons = append(c.buttons, w)
	c.mu.Unlock()
	c.notify()

	defer c.removeButton(w)

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) removeAttachment(w *attachmentWaiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.attachments {
		if x == w {
			c.attachments = append(c.attachments[:i], c.attachments[i+1:]...)
			break
		}
	}
}

func (c *Collector) removeButton(w *buttonWaiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.buttons {
		if x == w {
			c.buttons = append(c.buttons[:i], c.buttons[i+1:]...)
			break
		}
	}
}

// SendAttachment delivers a to every waiter on channelID for userID and
// reports whether anyone was waiting.
func (c *Collector) SendAttachment(channelID, userID string, a platform.Attachment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delivered := false
	for _, w := range c.attachments {
		if w.channelID == channelID && w.userID == userID {
			select {
			case w.ch <- a:
				delivered = true
			default:
			}
		}
	}
	return delivered
}

// PressButton delivers a press of customID by userID.
func (c *Collector) PressButton(customID, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delivered := false
	for _, w := range c.buttons {
		if w.customID == customID && w.userID == userID {
			select {
			case w.ch <- struct{}{}:
				delivered = true
			default:
			}
		}
	}
	return delivered
}

// Waiting returns the number of attachment and button waiters.
func (c *Collector) Waiting() (attachments, buttons int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attachments), len(c.buttons)
}

// WaitForListeners blocks until at least the given numbers of waiters are
// registered or ctx is done.
func (c *Collector) WaitForListeners(ctx context.Context, attachments, buttons int) error {
	for {
		a, b := c.Waiting()
		if a >= attachments && b >= buttons {
			return nil
		}
		select {
		case <-c.changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
