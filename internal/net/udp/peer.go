package udp

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/hazel"
)

// Peer is a remote address the host has received datagrams from.
type Peer struct {
	Address *net.UDPAddr
	host    *Host

	// guarded by host.µ
	lastSeen     time.Time
	disconnected bool
}

func (p *Peer) String() string { return p.Address.String() }

// Send writes one datagram to the peer.
func (p *Peer) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if p.Disconnected() {
		return errors.Errorf("udp: peer %s is disconnected", p)
	}
	_, err := p.host.conn.WriteToUDP(payload, p.Address)
	return errors.Wrapf(err, "udp: send to %s", p)
}

// Disconnect tells the peer why it is being dropped and forgets it. Datagrams arriving from the
// same address afterwards start a new peer.
func (p *Peer) Disconnect(reason string) {
	if !p.host.removePeer(p) {
		return
	}
	_, _ = p.host.conn.WriteToUDP(hazel.NewDisconnect(reason), p.Address)
}

func (p *Peer) Disconnected() bool {
	p.host.µ.Lock()
	defer p.host.µ.Unlock()
	return p.disconnected
}
