package domain

import (
	"encoding/json"
	"time"
)

// Session is a verification session grouping one customer's conversation under an order id.
type Session struct {
	SessionID   string    `json:"session_id"`
	OrderID     string    `json:"order_id"`
	Intent      Intent    `json:"intent"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a single persisted turn in a session.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Event represents a trace event recorded while a session is being verified.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
