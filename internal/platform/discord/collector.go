package discord

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

// Collector is fed by the gateway. Each waiter receives at most one
// delivery and is removed when its Await call returns.
type Collector struct {
	mu          sync.Mutex
	attachments []*attachmentWaiter
	buttons     []*buttonWaiter
}

var _ platform.Collector = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) AwaitAttachment(ctx context.Context, channelID, userID string) (platform.Attachment, error) {
	w := &attachmentWaiter{channelID: channelID, userID: userID, ch: make(chan platform.Attachment, 1)}
	c.mu.Lock()
	c.attachments = append(c.attachments, w)
	c.mu.Unlock()
	defer c.remove(w, nil)

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
	defer c.remove(nil, w)

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) remove(a *attachmentWaiter, b *buttonWaiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.attachments {
		if x == a {
			c.attachments = append(c.attachments[:i], c.attachments[i+1:]...)
			break
		}
	}
	for i, x := range c.buttons {
		if x == b {
			c.buttons = append(c.buttons[:i], c.buttons[i+1:]...)
			break
		}
	}
}

// OfferAttachment hands a to the waiters for channelID and userID and
// reports whether one took it.
func (c *Collector) OfferAttachment(channelID, userID string, a platform.Attachment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	taken := false
	for _, w := range c.attachments {
		if w.channelID != channelID || w.userID != userID {
			continue
		}
		select {
		case w.ch <- a:
			taken = true
		default:
		}
	}
	return taken
}

// OfferButton hands a press of customID by userID to its waiters and
// reports whether one took it. A taken press must not be routed further.
func (c *Collector) OfferButton(customID, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	taken := false
	for _, w := range c.buttons {
		if w.customID != customID || w.userID != userID {
			continue
		}
		select {
		case w.ch <- struct{}{}:
			taken = true
		default:
		}
	}
	return taken
}
