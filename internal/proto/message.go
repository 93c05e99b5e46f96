package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin    = "join"
	InboundTypeSend    = "send"
	InboundTypeHistory = "history"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameJoined  = "joined"
	EventNameMessage = "message"
	EventNameHistory = "history"
)

// JoinData binds the connection to a conversation. Token is required unless
// the server runs with jwt_required disabled.
type JoinData struct {
	UserID   string `json:"user_id"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// SendData is a chat message from the client.
type SendData struct {
	Body string `json:"body"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a persisted message pushed to every channel of its owner.
type EventMessage struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// EventJoined acknowledges a join.
type EventJoined struct {
	UserID string `json:"user_id"`
}

// EventHistory carries the conversation history, oldest first.
type EventHistory struct {
	OwnerID  string         `json:"owner_id"`
	Messages []EventMessage `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
