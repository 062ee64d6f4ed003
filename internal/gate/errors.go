package gate

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/envelope"
)

// Disconnect reasons shown to clients.
const (
	ReasonAuthenticationError = "Authentication Error."
	ReasonNotLoggedIn         = "You are not logged in. Please log in and try again."
)

var (
	ErrDigestMismatch = errors.New("gate: digest mismatch")
	ErrNotLoggedIn    = errors.New("gate: not logged in")
	ErrQueueFull      = errors.New("gate: too many packets while authenticating")
)

type IdentityErrorKind int

const (
	KindLookupFailed IdentityErrorKind = iota
	KindLookupTimeout
	KindBanned
)

func (k IdentityErrorKind) String() string {
	switch k {
	case KindLookupFailed:
		return "lookup failed"
	case KindLookupTimeout:
		return "lookup timed out"
	case KindBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// IdentityError is a failure to establish who is on the other end of a connection, or the
// discovery that it is someone who may not connect.
type IdentityError struct {
	Kind     IdentityErrorKind
	ClientID string
	User     *auth.User // set for KindBanned
	Err      error
}

func (e *IdentityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gate: %s for %s", e.Kind, e.ClientID)
	}
	return fmt.Sprintf("gate: %s for %s: %v", e.Kind, e.ClientID, e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// causeOf labels a rejection for metrics.
func causeOf(err error) string {
	var fe *envelope.FrameError
	var ie *IdentityError
	switch {
	case errors.As(err, &fe):
		return "malformed envelope"
	case errors.Is(err, ErrNotLoggedIn):
		return "not logged in"
	case errors.Is(err, ErrDigestMismatch):
		return "digest mismatch"
	case errors.Is(err, ErrQueueFull):
		return "queue full"
	case errors.As(err, &ie):
		return ie.Kind.String()
	default:
		return "unknown"
	}
}

// reasonOf is the disconnect reason shown to the client for a rejection.
func reasonOf(err error) string {
	var ie *IdentityError
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		return ReasonNotLoggedIn
	case errors.As(err, &ie) && ie.Kind == KindBanned && ie.User != nil:
		return ie.User.BanReason()
	default:
		return ReasonAuthenticationError
	}
}
