package gate

import (
	"context"
	"sync/atomic"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/envelope"
)

// Phase is where a connection is in its authentication lifecycle.
type Phase int

const (
	Unresolved Phase = iota
	Pending          // a lookup is in flight
	Resolved         // identity known, packets are verified synchronously
	Closed           // the gate disconnected the connection
)

func (p Phase) String() string {
	switch p {
	case Unresolved:
		return "unresolved"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

var lastSession uint32

// State is the authentication state of one connection. It is owned by the connection object and
// only touched from the event loop handling that connection.
type State struct {
	phase   Phase
	session uint32
	user    *auth.User
	variant auth.Variant

	// packets received while the lookup is pending, in arrival order; the first one triggered
	// the lookup
	queue []envelope.Envelope

	cancelLookup context.CancelFunc
}

func NewState() State {
	return State{
		session: atomic.AddUint32(&lastSession, 1),
		variant: auth.VariantUnknown,
	}
}

func (s *State) Phase() Phase { return s.phase }

// User returns the resolved identity, or nil before resolution.
func (s *State) User() *auth.User { return s.user }

// Variant returns the pinned client variant.
func (s *State) Variant() auth.Variant { return s.variant }

// Authenticated reports whether the connection has a resolved identity and a pinned variant.
func (s *State) Authenticated() bool {
	return s.phase == Resolved && s.variant != auth.VariantUnknown
}

// Reset discards everything known about the connection, e.g. when the connection object is
// reused for a new peer. Results of a lookup still in flight are dropped.
func (s *State) Reset() {
	s.stopLookup()
	*s = NewState()
}

func (s *State) close() {
	s.stopLookup()
	s.phase = Closed
	s.session = atomic.AddUint32(&lastSession, 1)
	s.user = nil
	s.queue = nil
}

func (s *State) stopLookup() {
	if s.cancelLookup != nil {
		s.cancelLookup()
		s.cancelLookup = nil
	}
}
