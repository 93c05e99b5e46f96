package core

import (
	"context"
	"sync/atomic"
)

// Channel is a live connection able to receive pushed messages.
type Channel interface {
	// ID uniquely identifies the channel for the lifetime of the process.
	ID() string
	// Deliver pushes a message without blocking.
	Deliver(msg Message) error
}

// Client is a channel backed by a buffered event queue drained by the transport.
type Client struct {
	id     string
	events chan *Event
	closed atomic.Bool
}

// NewClient constructs a client with an event buffer of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 8
	}
	return &Client{
		id:     id,
		events: make(chan *Event, buffer),
	}
}

// ID returns the client id.
func (c *Client) ID() string {
	return c.id
}

// Events exposes the outbound event queue.
func (c *Client) Events() <-chan *Event {
	return c.events
}

// Deliver enqueues a message event, failing fast when the consumer lags.
func (c *Client) Deliver(msg Message) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	select {
	case c.events <- &Event{Kind: EventMessage, Message: msg}:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Notify enqueues a control event (ack, history, error), waiting for room in the buffer.
func (c *Client) Notify(ctx context.Context, ev *Event) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the client closed; later deliveries fail with ErrChannelClosed.
func (c *Client) Close() {
	c.closed.Store(true)
}
