package port

import (
	"context"

	"github.com/nmarceau/chime/internal/core/domain"
)

// Gateway is the connection registry and routing surface. A route is the
// group of all live sessions of one identity; emitting to an identity
// delivers to every session in the group.
type Gateway interface {
	Register(s Session)
	Unregister(s Session)
	IsOnline(id domain.UserID) bool
	Emit(ctx context.Context, id domain.UserID, ev domain.Event) error
}
