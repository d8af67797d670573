package port

import (
	"context"
	"time"

	"github.com/nmarceau/chime/internal/core/domain"
)

type UserRepository interface {
	FindByID(ctx context.Context, id domain.UserID) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	// FindWithContacts resolves the user and the full user records of its
	// contact list in one read.
	FindWithContacts(ctx context.Context, id domain.UserID) (domain.User, []domain.User, error)
	UpdateStatus(ctx context.Context, id domain.UserID, status domain.UserStatus, lastSeen time.Time) error
}

type CallSessionRepository interface {
	Create(ctx context.Context, rec domain.CallRecord) error
	UpdateStatus(ctx context.Context, id domain.CallID, status domain.CallStatus, reason domain.EndReason, duration time.Duration) error
}

type MessageRepository interface {
	FindByID(ctx context.Context, id domain.MessageID) (domain.Message, error)
	UpdateStatus(ctx context.Context, id domain.MessageID, status domain.MessageStatus) error
}
