package masterserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sauerbraten/maitred/v2/pkg/protocol"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/lookup"
)

type lookupResult struct {
	user *auth.User
	err  error
}

type pendingLookup struct {
	clientID string
	result   chan<- lookupResult
}

// LookupProvider resolves client IDs through the master server:
//
//	lookup <request id> <client id>
//	succlookup <request id> <user JSON>
//	faillookup <request id> [reason]
type LookupProvider struct {
	send func(format string, args ...interface{}) error

	// RequestTimeout bounds requests whose context has no deadline.
	RequestTimeout time.Duration

	µ       sync.Mutex
	ids     protocol.IDCycle
	pending map[uint32]pendingLookup
}

func newLookupProvider(send func(format string, args ...interface{}) error) *LookupProvider {
	return &LookupProvider{
		send:           send,
		RequestTimeout: 30 * time.Second,
		pending:        map[uint32]pendingLookup{},
	}
}

func (p *LookupProvider) GetUser(ctx context.Context, clientID string) (*auth.User, error) {
	if _, ok := ctx.Deadline(); !ok && p.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.RequestTimeout)
		defer cancel()
	}

	result := make(chan lookupResult, 1)

	p.µ.Lock()
	reqID := p.ids.Next()
	p.pending[reqID] = pendingLookup{clientID: clientID, result: result}
	p.µ.Unlock()

	defer func() {
		p.µ.Lock()
		delete(p.pending, reqID)
		p.µ.Unlock()
	}()

	if err := p.send("%s %d %s", protocol.Lookup, reqID, clientID); err != nil {
		return nil, errors.Wrap(err, "master: sending lookup")
	}

	select {
	case r := <-result:
		return r.user, r.err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "master: waiting for lookup %d", reqID)
	}
}

func (p *LookupProvider) handle(cmd, args string) {
	var reqID uint32
	_, err := fmt.Sscanf(args, "%d", &reqID)
	if err != nil {
		log.Warn().Err(err).Msgf("malformed %s message from master server: '%s'", cmd, args)
		return
	}
	rest := strings.TrimSpace(strings.TrimPrefix(args, fmt.Sprint(reqID)))

	p.µ.Lock()
	req, ok := p.pending[reqID]
	delete(p.pending, reqID)
	p.µ.Unlock()

	if !ok {
		log.Warn().Msgf("unsolicited %s message from master server: '%s'", cmd, args)
		return
	}

	var r lookupResult
	switch cmd {
	case protocol.SuccLookup:
		u := new(auth.User)
		if err := json.Unmarshal([]byte(rest), u); err != nil {
			r.err = errors.Wrapf(err, "master: malformed %s for request %d", cmd, reqID)
		} else if !strings.EqualFold(u.ClientID.String(), req.clientID) {
			r.err = errors.Errorf("master: lookup %d returned user %s, asked for %s", reqID, u.ClientID, req.clientID)
		} else {
			r.user = u
		}
	default:
		r.err = lookup.ErrNotFound
		if rest != "" {
			r.err = errors.Wrap(lookup.ErrNotFound, rest)
		}
	}

	// buffered, never blocks
	req.result <- r
}
