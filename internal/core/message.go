package core

import (
	"time"

	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// Message is the domain model for a chat message.
// OwnerID names the conversation the message is filed under; both directions
// of a customer/staff conversation share the customer's id.
type Message struct {
	ID        string
	OwnerID   string
	Body      string
	CreatedAt time.Time
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
