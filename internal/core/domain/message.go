package domain

import "time"

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

// Message is owned by the persistence collaborator; the coordinator only
// relays it and flips its delivery status.
type Message struct {
	ID             MessageID      `json:"message_id"`
	ConversationID ConversationID `json:"conversation_id"`
	Sender         UserID         `json:"sender_id"`
	Recipient      UserID         `json:"recipient_id"`
	Content        string         `json:"content"`
	Status         MessageStatus  `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	EditedAt       time.Time      `json:"edited_at,omitempty"`
}
