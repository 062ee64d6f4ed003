package gate

import (
	"context"
	"time"

	"github.com/ivahaev/timer"
	"github.com/rs/zerolog/log"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/lookup"
	"github.com/polusgg/plugin-polusgg-auth/internal/metrics"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/envelope"
)

// Completion is the outcome of a user lookup, handed back to the event loop through
// Gate.Completions.
type Completion struct {
	conn     Conn
	session  uint32
	clientID string
	user     *auth.User
	err      error
}

func (cm *Completion) Conn() Conn { return cm.conn }

func (cm *Completion) Err() error { return cm.err }

// startLookup moves an unresolved connection to Pending and fetches the user on its own
// goroutine. The triggering packet is the first entry of the queue.
func (g *Gate) startLookup(c Conn, st *State, e envelope.Envelope) {
	clientID := e.ClientIDString()
	session := st.session

	ctx, cancel := context.WithCancel(context.Background())
	st.phase = Pending
	st.queue = append(st.queue[:0], e)
	st.cancelLookup = cancel

	if g.conf.LookupTimeout > 0 {
		// never stopped: once the lookup is over ctx is cancelled and a late fire posts nothing
		timer.AfterFunc(g.conf.LookupTimeout, func() {
			g.post(ctx, &Completion{
				conn:     c,
				session:  session,
				clientID: clientID,
				err:      &IdentityError{Kind: KindLookupTimeout, ClientID: clientID},
			})
		}).Start()
	}

	log.Debug().Msgf("looking up %s for connection %s", clientID, c)

	go func() {
		start := time.Now()
		user, err := g.provider.GetUser(ctx, clientID)
		if err != nil {
			metrics.RecordLookup("error", time.Since(start).Seconds())
			err = &IdentityError{Kind: KindLookupFailed, ClientID: clientID, Err: err}
		} else {
			metrics.RecordLookup("ok", time.Since(start).Seconds())
		}
		g.post(ctx, &Completion{
			conn:     c,
			session:  session,
			clientID: clientID,
			user:     user,
			err:      err,
		})
	}()
}

// post hands a completion to the event loop unless the lookup was abandoned in the meantime.
func (g *Gate) post(ctx context.Context, cm *Completion) {
	if ctx.Err() != nil {
		return
	}
	select {
	case g.completions <- cm:
	case <-ctx.Done():
	case <-g.done:
	}
}

// Complete finishes a lookup on the event loop: it records the identity, enforces bans, and
// verifies and delivers the packets that were held back while the lookup was pending. Stale
// completions (connection gone or already resolved) are ignored.
func (g *Gate) Complete(cm *Completion) {
	c := cm.conn
	st := c.AuthState()
	if st.session != cm.session || st.phase != Pending {
		log.Debug().Msgf("discarding stale lookup result for %s", cm.clientID)
		return
	}

	queue := st.queue
	st.queue = nil
	st.stopLookup()

	if cm.err == nil && cm.user == nil {
		cm.err = &IdentityError{Kind: KindLookupFailed, ClientID: cm.clientID, Err: lookup.ErrNotFound}
	}
	if cm.err != nil {
		log.Warn().Msgf("connection %s attempted to send an invalid authentication packet. The API did not return a valid result (%v)", c, cm.err)
		g.reject(c, st, cm.err)
		return
	}

	st.user = cm.user
	st.phase = Resolved

	if cm.user.Banned {
		log.Warn().Msgf("connection %s belongs to banned user %s", c, cm.user)
		g.reject(c, st, &IdentityError{Kind: KindBanned, ClientID: cm.clientID, User: cm.user})
		return
	}

	log.Debug().Msgf("connection %s resolved to %s", c, cm.user)

	for _, e := range queue {
		if err := g.verify(c, st, e); err != nil {
			log.Warn().Msgf("connection %s attempted to send an invalid authentication packet. Their HMAC verify failed.", c)
			g.reject(c, st, err)
			return
		}
		c.Deliver(e.Payload)
		if st.session != cm.session || st.phase != Resolved {
			// delivery tore the connection down
			return
		}
	}
}
