package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage delivers a persisted chat message.
	EventMessage EventKind = iota
	// EventJoined acknowledges that the channel is bound to an identity.
	EventJoined
	// EventHistory delivers message history on request.
	EventHistory
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Identity string
	Message  Message
	Messages []Message // For EventHistory
	Error    *CoreError
}
