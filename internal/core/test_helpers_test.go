package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/dsolution-crm/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// memoryStore is an in-memory store.MessageStore with a clock that only moves forward.
type memoryStore struct {
	mu       sync.Mutex
	messages []*store.Message
	fail     error
	clock    time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memoryStore) SaveMessage(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	m.clock = m.clock.Add(time.Millisecond)
	msg.ID = store.NewMessageID()
	msg.CreatedAt = m.clock
	stored := *msg
	m.messages = append(m.messages, &stored)
	return nil
}

func (m *memoryStore) ListMessages(_ context.Context, ownerID string) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]*store.Message, 0)
	for _, msg := range m.messages {
		if msg.OwnerID == ownerID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryStore) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

var errStoreDown = errors.New("store down")

// brokenChannel fails every delivery.
type brokenChannel struct {
	id string
}

func (b brokenChannel) ID() string { return b.id }

func (b brokenChannel) Deliver(Message) error { return errors.New("connection reset") }

func newTestHub(t *testing.T) (*Hub, *memoryStore) {
	t.Helper()

	st := newMemoryStore()
	return NewHub(st, Options{MaxBodyBytes: 64}, nil), st
}
