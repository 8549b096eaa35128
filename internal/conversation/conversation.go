package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message represents a single chat message. Text is immutable once created.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a UUID identity. Timestamp-derived ids
// collide under rapid programmatic submission, so identity is random.
func NewMessage(sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// Role maps the sender tag to the transport role vocabulary.
func (m Message) Role() string {
	if m.Sender == SenderBot {
		return "assistant"
	}
	return "user"
}

// Conversation is an append-only ordered list of messages for one chat
// surface. Insertion order is display order, oldest first.
type Conversation struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`

	mu       sync.Mutex
	messages []Message
}

// New creates an empty conversation.
func New() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
	}
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the message list.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Last returns the newest message, if any.
func (c *Conversation) Last() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clear removes all messages. Individual messages are never edited or
// removed; clearing the whole conversation is the only deletion.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
