package chat

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderBot, SenderSystem:
		return true
	default:
		return false
	}
}

// Message is one entry of the conversation log. Messages are immutable once
// appended to a Store.
type Message struct {
	ID        int64  `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Snapshot is a read-only view of a Store for rendering.
type Snapshot struct {
	Messages []Message `json:"messages"`
	IsTyping bool      `json:"isTyping"`
}
