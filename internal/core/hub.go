package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// Options tune the relay.
type Options struct {
	// MaxBodyBytes caps message bodies; 0 disables the cap.
	MaxBodyBytes int
}

// Hub wires the session registry and the dispatcher together and is the
// entry point the transports use.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
}

// NewHub creates a relay hub persisting through st.
func NewHub(st store.MessageStore, opts Options, logger *zerolog.Logger) *Hub {
	registry := NewRegistry()
	return &Hub{
		registry:   registry,
		dispatcher: NewDispatcher(st, registry, opts.MaxBodyBytes, logger),
	}
}

// Connect starts the lifecycle of a new channel in the unjoined state.
func (h *Hub) Connect(ch Channel) *Session {
	return newSession(ch, h.registry, h.dispatcher)
}

// Submit dispatches a message to ownerID.
func (h *Hub) Submit(ctx context.Context, ownerID, body string) (Message, error) {
	return h.dispatcher.Submit(ctx, ownerID, body)
}

// History returns ownerID's messages, oldest first.
func (h *Hub) History(ctx context.Context, ownerID string) ([]Message, error) {
	return h.dispatcher.History(ctx, ownerID)
}

// Registry exposes the session registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}
