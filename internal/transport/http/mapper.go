package http

import (
	"github.com/courseconnect/courseconnect-server/internal/chat"
	"github.com/courseconnect/courseconnect-server/internal/proto"
	"github.com/courseconnect/courseconnect-server/internal/store"
)

func toProtoMessage(msg *store.ChatMessage) proto.ChatMessage {
	return proto.ChatMessage{
		ID:                  msg.ID,
		CourseID:            msg.CourseID,
		SenderAnonymousName: msg.AnonymousName,
		Content:             msg.Content,
		SentAt:              msg.SentAt,
	}
}

func outboundFromEvent(ev *chat.Event) proto.Outbound {
	switch ev.Kind {
	case chat.EventMessage:
		msg := toProtoMessage(ev.Message)
		return proto.Outbound{
			Type:    proto.OutboundTypeMessage,
			Message: &msg,
		}
	case chat.EventHistory:
		messages := make([]proto.ChatMessage, 0, len(ev.Messages))
		for _, msg := range ev.Messages {
			messages = append(messages, toProtoMessage(msg))
		}
		return proto.Outbound{
			Type:     proto.OutboundTypeHistory,
			Messages: messages,
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}
