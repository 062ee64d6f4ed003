// Package gate authenticates every inbound datagram of a connection before it reaches normal
// protocol handling.
//
// Transform is called synchronously for every datagram and must answer immediately, but the
// first datagram of a connection needs a network round trip to learn the user's secret. The gate
// answers such datagrams with a placeholder and a Defer verdict, holds them back, and fetches the
// user on a separate goroutine. The result comes back through Completions; the event loop hands
// it to Complete, which verifies the held back datagrams and re-injects their payloads through
// Conn.Deliver, in arrival order.
package gate

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/lookup"
	"github.com/polusgg/plugin-polusgg-auth/internal/metrics"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/envelope"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/hazel"
)

// Placeholder returns the frame handed back instead of a payload for rejected and deferred
// datagrams. It must never be treated as an accepted payload.
func Placeholder() []byte { return []byte{0x00} }

// Conn is the part of a connection the gate controls.
type Conn interface {
	Disconnect(reason string)
	// Deliver feeds a payload into the connection's normal inbound path, as if it had just
	// arrived.
	Deliver(payload []byte)
	AuthState() *State
	String() string
}

type Verdict int

const (
	Pass   Verdict = iota // not subject to authentication, forwarded unchanged
	Accept                // authenticated, the payload is returned
	Defer                 // held back until the user lookup completes
	Reject                // the connection was disconnected
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Accept:
		return "accept"
	case Defer:
		return "defer"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

type Config struct {
	// Enabled=false forwards every datagram unchanged.
	Enabled bool
	// Offsets is the client variant table probed once per connection.
	Offsets auth.Offsets
	// LookupTimeout bounds a user lookup; zero disables the bound.
	LookupTimeout time.Duration
	// MaxPending is the number of datagrams held back while a lookup is in flight, including
	// the one that triggered it.
	MaxPending int
	// Passthrough selects datagrams that are not wrapped in an envelope.
	Passthrough func(raw []byte) bool
}

func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Offsets:       auth.DefaultOffsets,
		LookupTimeout: 10 * time.Second,
		MaxPending:    64,
		Passthrough:   hazel.IsAcknowledgement,
	}
}

type Gate struct {
	conf        Config
	provider    lookup.Provider
	completions chan *Completion
	done        chan struct{}
}

func New(conf Config, provider lookup.Provider) *Gate {
	if len(conf.Offsets) == 0 {
		conf.Offsets = auth.DefaultOffsets
	}
	if conf.MaxPending < 1 {
		conf.MaxPending = 1
	}
	if conf.Passthrough == nil {
		conf.Passthrough = hazel.IsAcknowledgement
	}
	return &Gate{
		conf:        conf,
		provider:    provider,
		completions: make(chan *Completion),
		done:        make(chan struct{}),
	}
}

// Completions delivers finished lookups. The event loop must pass each one to Complete.
func (g *Gate) Completions() <-chan *Completion { return g.completions }

// Close abandons all lookups still in flight.
func (g *Gate) Close() { close(g.done) }

// Transform authenticates one inbound datagram. It returns the frame to hand to protocol
// handling (only meaningful for Pass and Accept) and the verdict.
func (g *Gate) Transform(c Conn, raw []byte) ([]byte, Verdict) {
	frame, v := g.transform(c, raw)
	metrics.RecordVerdict(v.String())
	return frame, v
}

func (g *Gate) transform(c Conn, raw []byte) ([]byte, Verdict) {
	if !g.conf.Enabled || g.conf.Passthrough(raw) {
		return raw, Pass
	}

	st := c.AuthState()
	if st.phase == Closed {
		return Placeholder(), Reject
	}

	e, err := envelope.Decode(raw)
	if err != nil {
		reason := err.Error()
		var fe *envelope.FrameError
		if errors.As(err, &fe) {
			reason = fe.Reason()
		}
		log.Warn().Msgf("connection %s attempted to send an invalid authentication packet. %s", c, reason)
		g.reject(c, st, err)
		return Placeholder(), Reject
	}

	if e.IsAnonymous() {
		log.Warn().Msgf("connection %s is not logged in", c)
		g.reject(c, st, ErrNotLoggedIn)
		return Placeholder(), Reject
	}

	switch st.phase {
	case Resolved:
		if err := g.verify(c, st, e); err != nil {
			log.Warn().Msgf("connection %s attempted to send an invalid authentication packet. Their HMAC verify failed.", c)
			g.reject(c, st, err)
			return Placeholder(), Reject
		}
		return e.Payload, Accept

	case Pending:
		if len(st.queue) >= g.conf.MaxPending {
			log.Warn().Msgf("connection %s sent too many packets while authenticating", c)
			g.reject(c, st, ErrQueueFull)
			return Placeholder(), Reject
		}
		st.queue = append(st.queue, detach(e))
		return Placeholder(), Defer

	default:
		g.startLookup(c, st, detach(e))
		return Placeholder(), Defer
	}
}

// verify checks the digest with the connection's pinned variant, pinning one first if needed.
func (g *Gate) verify(c Conn, st *State, e envelope.Envelope) error {
	secret := st.user.Secret
	if st.variant != auth.VariantUnknown {
		if !g.conf.Offsets.Verify(st.variant, e.Payload, e.Digest[:], secret) {
			return ErrDigestMismatch
		}
		return nil
	}

	v, ok := g.conf.Offsets.Resolve(e.Payload, e.Digest[:], secret)
	if !ok {
		return ErrDigestMismatch
	}
	st.variant = v
	metrics.RecordVariant(v.String())
	log.Debug().Msgf("connection %s uses the %s client variant", c, v)
	return nil
}

// reject tears the connection's auth state down before disconnecting it, so nothing that arrives
// afterwards is processed. The metrics label and the reason shown to the client follow from err.
func (g *Gate) reject(c Conn, st *State, err error) {
	st.close()
	metrics.RecordRejection(causeOf(err))
	c.Disconnect(reasonOf(err))
}

// detach copies the payload out of the datagram buffer so it can be held back.
func detach(e envelope.Envelope) envelope.Envelope {
	e.Payload = append([]byte(nil), e.Payload...)
	return e
}
