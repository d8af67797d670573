package port

import "github.com/nmarceau/chime/internal/core/domain"

// Session is one live transport connection of an authenticated identity.
type Session interface {
	UserID() domain.UserID
	Send(ev domain.Event) error
	Close() error
}
