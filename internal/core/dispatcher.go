package core

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dsolution-crm/internal/metrics"
	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// Dispatcher persists inbound messages and fans them out to live channels.
type Dispatcher struct {
	store    store.MessageStore
	registry *Registry
	maxBody  int
	log      *zerolog.Logger
}

// NewDispatcher builds a dispatcher. maxBody limits the body size in bytes; 0 disables the limit.
func NewDispatcher(st store.MessageStore, registry *Registry, maxBody int, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		store:    st,
		registry: registry,
		maxBody:  maxBody,
		log:      logger,
	}
}

// Submit validates body, persists it under ownerID and then delivers it to
// every channel registered for ownerID. Nothing is delivered unless the
// message was stored first. Per-channel delivery failures are logged only.
func (d *Dispatcher) Submit(ctx context.Context, ownerID, body string) (Message, error) {
	if err := d.validate(ownerID, body); err != nil {
		metrics.MessagesRejected.WithLabelValues("validation").Inc()
		return Message{}, err
	}

	record := &store.Message{OwnerID: ownerID, Body: body}
	if err := d.store.SaveMessage(ctx, record); err != nil {
		metrics.MessagesRejected.WithLabelValues("storage").Inc()
		d.log.Error().Err(err).Str("owner_id", ownerID).Msg("persist message")
		return Message{}, storageError(err)
	}
	metrics.MessagesSubmitted.Inc()

	msg := messageFromStore(record)
	d.broadcast(msg)
	return msg, nil
}

func (d *Dispatcher) validate(ownerID, body string) error {
	if ownerID == "" {
		return validationError(ErrCodeBadRequest, "owner is required")
	}
	if strings.TrimSpace(body) == "" {
		return validationError(ErrCodeBadRequest, "message body is required")
	}
	if !utf8.ValidString(body) {
		return validationError(ErrCodeBadRequest, "message body is not valid utf-8")
	}
	if d.maxBody > 0 && len(body) > d.maxBody {
		return validationError(ErrCodeBadRequest, "message body is too long")
	}
	return nil
}

func (d *Dispatcher) broadcast(msg Message) {
	for _, ch := range d.registry.ChannelsFor(msg.OwnerID) {
		if err := ch.Deliver(msg); err != nil {
			metrics.Deliveries.WithLabelValues("dropped").Inc()
			warning := &DeliveryWarning{
				ChannelID: ch.ID(),
				OwnerID:   msg.OwnerID,
				MessageID: msg.ID,
				Err:       err,
			}
			d.log.Warn().Err(warning).
				Str("channel_id", warning.ChannelID).
				Str("owner_id", warning.OwnerID).
				Str("message_id", warning.MessageID).
				Msg("delivery warning")
			continue
		}
		metrics.Deliveries.WithLabelValues("delivered").Inc()
	}
}

// History returns every message filed under ownerID, oldest first.
func (d *Dispatcher) History(ctx context.Context, ownerID string) ([]Message, error) {
	if ownerID == "" {
		return nil, validationError(ErrCodeBadRequest, "owner is required")
	}

	records, err := d.store.ListMessages(ctx, ownerID)
	if err != nil {
		d.log.Error().Err(err).Str("owner_id", ownerID).Msg("list messages")
		return nil, storageError(err)
	}

	messages := make([]Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, messageFromStore(r))
	}
	return messages, nil
}
