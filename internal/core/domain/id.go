package domain

import (
	"github.com/google/uuid"
)

type UserID string
type CallID string
type MessageID string
type ConversationID string

func NewCallID() CallID {
	return CallID(uuid.New().String())
}

func NewUserID() UserID {
	return UserID(uuid.New().String())
}

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func (id UserID) String() string {
	return string(id)
}

func (id CallID) String() string {
	return string(id)
}

func (id MessageID) String() string {
	return string(id)
}

func (id ConversationID) String() string {
	return string(id)
}
