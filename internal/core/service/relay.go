package service

import (
	"context"
	"fmt"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/nmarceau/chime/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Relay forwards message-lifecycle events to the right routes. Status
// flips triggered over the socket are persisted first and relayed only
// after the durable write succeeds; nothing is relayed speculatively.
type Relay struct {
	gateway  port.Gateway
	messages port.MessageRepository
}

func NewRelay(gateway port.Gateway, messages port.MessageRepository) *Relay {
	return &Relay{gateway: gateway, messages: messages}
}

// Typing is ephemeral: no persistence, forwarded to the recipient only.
// Expiry after silence is inferred client-side.
func (s *Relay) Typing(ctx context.Context, from, recipient domain.UserID, conversation domain.ConversationID, isTyping bool) {
	ev := domain.Event{
		Name: domain.EventUserTyping,
		Data: domain.TypingPayload{UserID: from, ConversationID: conversation, IsTyping: isTyping},
	}
	if err := s.gateway.Emit(ctx, recipient, ev); err != nil {
		log.Error().Err(err).Str("user_id", recipient.String()).Msg("Failed to forward typing event")
	}
}

// MarkDelivered persists the delivered flip and notifies the original
// sender. A failed durable write drops the event.
func (s *Relay) MarkDelivered(ctx context.Context, actor domain.UserID, messageID domain.MessageID, conversation domain.ConversationID) error {
	return s.markStatus(ctx, actor, messageID, conversation, domain.MessageDelivered, domain.EventMessageStatusUpdate)
}

// MarkRead persists the read flip and notifies the original sender.
func (s *Relay) MarkRead(ctx context.Context, actor domain.UserID, messageID domain.MessageID, conversation domain.ConversationID) error {
	return s.markStatus(ctx, actor, messageID, conversation, domain.MessageRead, domain.EventMessagesRead)
}

func (s *Relay) markStatus(ctx context.Context, actor domain.UserID, messageID domain.MessageID, conversation domain.ConversationID, status domain.MessageStatus, event string) error {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		log.Warn().Err(err).Str("message_id", messageID.String()).Msg("Dropping status event, message lookup failed")
		return fmt.Errorf("%w: find message: %v", domain.ErrPersistence, err)
	}
	if err := s.messages.UpdateStatus(ctx, messageID, status); err != nil {
		log.Warn().Err(err).Str("message_id", messageID.String()).Msg("Dropping status event, durable update failed")
		return fmt.Errorf("%w: update message status: %v", domain.ErrPersistence, err)
	}

	ev := domain.Event{
		Name: event,
		Data: domain.MessageStatusPayload{
			MessageID:      messageID,
			ConversationID: conversation,
			Status:         status,
			By:             actor,
		},
	}
	s.emit(ctx, msg.Sender, ev)
	// Multi-device echo so the actor's other sessions converge.
	s.emit(ctx, actor, ev)
	return nil
}

// MessageCreated relays a message the HTTP layer already committed:
// the recipient gets new_message, the sender's own route gets an echo.
func (s *Relay) MessageCreated(ctx context.Context, msg domain.Message) {
	s.emit(ctx, msg.Recipient, domain.Event{Name: domain.EventNewMessage, Data: msg})
	s.emit(ctx, msg.Sender, domain.Event{Name: domain.EventMessageSent, Data: msg})
}

// MessageEdited relays an already-committed edit to both routes.
func (s *Relay) MessageEdited(ctx context.Context, msg domain.Message) {
	ev := domain.Event{Name: domain.EventMessageEdited, Data: msg}
	s.emit(ctx, msg.Recipient, ev)
	s.emit(ctx, msg.Sender, ev)
}

// MessageDeleted relays an already-committed deletion to both routes.
func (s *Relay) MessageDeleted(ctx context.Context, msg domain.Message) {
	ev := domain.Event{
		Name: domain.EventMessageDeleted,
		Data: domain.MessageStatusPayload{MessageID: msg.ID, ConversationID: msg.ConversationID, By: msg.Sender},
	}
	s.emit(ctx, msg.Recipient, ev)
	s.emit(ctx, msg.Sender, ev)
}

func (s *Relay) emit(ctx context.Context, id domain.UserID, ev domain.Event) {
	if err := s.gateway.Emit(ctx, id, ev); err != nil {
		log.Error().Err(err).Str("user_id", id.String()).Str("event", ev.Name).Msg("Failed to relay message event")
	}
}
