// Package udp implements a connectionless datagram host that tracks remote addresses as peers.
package udp

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxDatagramSize is the largest datagram the host reads.
const maxDatagramSize = 65507

type Host struct {
	conn        *net.UDPConn
	peerTimeout time.Duration

	µ     sync.Mutex
	peers map[string]*Peer
}

// NewHost binds to laddr:lport. Peers that stay silent for longer than peerTimeout are dropped;
// zero keeps them forever.
func NewHost(laddr string, lport int, peerTimeout time.Duration) (*Host, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(laddr, strconv.Itoa(lport)))
	if err != nil {
		return nil, errors.Wrapf(err, "udp: resolving listen address")
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "udp: listening on %s", addr)
	}
	return &Host{
		conn:        conn,
		peerTimeout: peerTimeout,
		peers:       map[string]*Peer{},
	}, nil
}

func (h *Host) Addr() *net.UDPAddr { return h.conn.LocalAddr().(*net.UDPAddr) }

func (h *Host) NumPeers() int {
	h.µ.Lock()
	defer h.µ.Unlock()
	return len(h.peers)
}

// Service reads datagrams until ctx is cancelled and reports them as events. The channel is
// closed when the host stops.
func (h *Host) Service(ctx context.Context) <-chan Event {
	events := make(chan Event)

	go func() {
		<-ctx.Done()
		h.conn.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.readLoop(ctx, events)
	}()
	if h.peerTimeout > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.sweepLoop(ctx, events)
		}()
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	return events
}

func (h *Host) readLoop(ctx context.Context, events chan<- Event) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := h.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("udp: read failed, stopping host")
			}
			return
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		peer, isNew := h.peerFor(addr)
		if isNew && !emit(ctx, events, Event{Type: EventTypeConnect, Peer: peer}) {
			return
		}
		if !emit(ctx, events, Event{Type: EventTypeReceive, Peer: peer, Data: data}) {
			return
		}
	}
}

func (h *Host) sweepLoop(ctx context.Context, events chan<- Event) {
	interval := h.peerTimeout / 4
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, p := range h.idlePeers(now) {
				if !emit(ctx, events, Event{Type: EventTypeDisconnect, Peer: p}) {
					return
				}
			}
		}
	}
}

func emit(ctx context.Context, events chan<- Event, e Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Host) peerFor(addr *net.UDPAddr) (p *Peer, isNew bool) {
	h.µ.Lock()
	defer h.µ.Unlock()

	key := addr.String()
	p, ok := h.peers[key]
	if !ok {
		p = &Peer{Address: addr, host: h}
		h.peers[key] = p
	}
	p.lastSeen = time.Now()
	return p, !ok
}

// idlePeers removes and returns peers that timed out.
func (h *Host) idlePeers(now time.Time) (idle []*Peer) {
	h.µ.Lock()
	defer h.µ.Unlock()

	for key, p := range h.peers {
		if now.Sub(p.lastSeen) > h.peerTimeout {
			p.disconnected = true
			delete(h.peers, key)
			idle = append(idle, p)
		}
	}
	return
}

func (h *Host) removePeer(p *Peer) bool {
	h.µ.Lock()
	defer h.µ.Unlock()

	if p.disconnected {
		return false
	}
	p.disconnected = true
	if h.peers[p.Address.String()] == p {
		delete(h.peers, p.Address.String())
	}
	return true
}
