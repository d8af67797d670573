package port

import (
	"context"

	"github.com/nmarceau/chime/internal/core/domain"
)

// TokenVerifier maps a bearer token to the identity it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.UserID, error)
}
