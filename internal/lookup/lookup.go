// Package lookup contains the user lookup collaborators the gate fetches identities from.
package lookup

import (
	"context"

	"github.com/pkg/errors"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
)

// ErrNotFound is returned when no user exists for a client ID.
var ErrNotFound = errors.New("lookup: user not found")

// Provider fetches user records by client ID. GetUser may block; callers run it off the event
// loop.
type Provider interface {
	GetUser(ctx context.Context, clientID string) (*auth.User, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, clientID string) (*auth.User, error)

func (f ProviderFunc) GetUser(ctx context.Context, clientID string) (*auth.User, error) {
	return f(ctx, clientID)
}
