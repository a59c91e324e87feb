package bus

// EventKind distinguishes plain chat messages from inline-menu callbacks.
// The two travel the same bus but the router treats them as separate
// channels: messages may consume continuations, callbacks never do.
type EventKind string

const (
	KindMessage  EventKind = "message"
	KindCallback EventKind = "callback"
)

type InboundEvent struct {
	Channel    string            `json:"channel"`
	SenderID   string            `json:"sender_id"`
	ChatID     string            `json:"chat_id"`
	Kind       EventKind         `json:"kind"`
	Content    string            `json:"content,omitempty"`
	CallbackID string            `json:"callback_id,omitempty"` // transport handle for the ack
	Token      string            `json:"token,omitempty"`       // callback token
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// Menu is a transport-agnostic inline menu. The Telegram channel renders
// it as an inline keyboard; tokens come back as callback events.
type Menu struct {
	Rows [][]MenuButton
}

type MenuButton struct {
	Label string
	Token string
}
