package channels

import (
	"sync/atomic"

	"github.com/reisbot/reisbot/pkg/bus"
	"github.com/reisbot/reisbot/pkg/logger"
)

// BaseChannel carries the state every transport shares: a name, the
// event bus and the sender allowlist.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom []string
	running   atomic.Bool
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) *BaseChannel {
	return &BaseChannel{name: name, bus: b, allowFrom: allowFrom}
}

func (c *BaseChannel) Name() string { return c.name }

func (c *BaseChannel) IsRunning() bool { return c.running.Load() }

func (c *BaseChannel) setRunning(v bool) { c.running.Store(v) }

// IsAllowed reports whether a sender may use the bot. An empty
// allowlist admits everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	for _, allowed := range c.allowFrom {
		if allowed == senderID {
			return true
		}
	}
	return false
}

func (c *BaseChannel) publish(ev bus.InboundEvent) {
	ev.Channel = c.name
	c.bus.Publish(ev)
	logger.DebugCF(c.name, "Event published", map[string]interface{}{
		"chat_id": ev.ChatID,
		"kind":    string(ev.Kind),
	})
}
