package http

import (
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/dsolution-crm/internal/core"
	"github.com/vovakirdan/dsolution-crm/internal/proto"
)

func messageToProto(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:        msg.ID,
		OwnerID:   msg.OwnerID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func messagesToProto(messages []core.Message) []proto.EventMessage {
	return lo.Map(messages, func(m core.Message, _ int) proto.EventMessage {
		return messageToProto(m)
	})
}

func errorOutbound(err *core.CoreError) proto.Outbound {
	if err == nil {
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: err.Code, Msg: err.Message},
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  messageToProto(event.Message),
		}
	case core.EventJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameJoined,
			Data:  proto.EventJoined{UserID: event.Identity},
		}
	case core.EventHistory:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				OwnerID:  event.Identity,
				Messages: messagesToProto(event.Messages),
			},
		}
	case core.EventError:
		return errorOutbound(event.Error)
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
