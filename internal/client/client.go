package client

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/polusgg/plugin-polusgg-auth/internal/gate"
	"github.com/polusgg/plugin-polusgg-auth/internal/net/udp"
)

// Describes a client.
type Client struct {
	CN     int32
	Peer   *udp.Peer
	Joined bool // true once the client sent its hello
	InUse  bool // true if this client's peer is in use (i.e. the client object belongs to a connection)

	auth    gate.State
	manager *ClientManager
}

func newClient(cn int32, peer *udp.Peer, manager *ClientManager) *Client {
	return &Client{
		CN:      cn,
		Peer:    peer,
		InUse:   true,
		auth:    gate.NewState(),
		manager: manager,
	}
}

func (c *Client) String() string {
	if u := c.auth.User(); u != nil {
		return fmt.Sprintf("%s (%d, %s)", u.DisplayName, c.CN, c.Peer)
	}
	return fmt.Sprintf("%d (%s)", c.CN, c.Peer)
}

func (c *Client) AuthState() *gate.State { return &c.auth }

// Authenticated reports whether the client's identity is resolved.
func (c *Client) Authenticated() bool { return c.auth.Authenticated() }

// Send writes a raw datagram to the client.
func (c *Client) Send(payload []byte) {
	if !c.InUse {
		return
	}
	if err := c.Peer.Send(payload); err != nil {
		log.Debug().Err(err).Msgf("send to %s failed", c)
	}
}

// Deliver hands an authenticated payload to the inbound handler.
func (c *Client) Deliver(payload []byte) {
	if !c.InUse {
		return
	}
	c.manager.inbound(c, payload)
}

// Disconnect drops the client, telling it why. The authentication state is kept until the client
// object is reused, so that late lookup results see a closed connection.
func (c *Client) Disconnect(reason string) {
	if !c.InUse {
		return
	}
	log.Info().Msgf("disconnected: %s - %s", c, reason)
	c.Peer.Disconnect(reason)
	c.manager.release(c)
}

// Leave is for clients that went away on their own, either by saying goodbye or by going silent.
func (c *Client) Leave() {
	if !c.InUse {
		return
	}
	log.Info().Msgf("left: %s", c)
	c.auth.Reset()
	c.Peer.Disconnect("")
	c.manager.release(c)
}

// Resets the client object. Keeps the client's CN, so low CNs can be reused.
func (c *Client) reset(peer *udp.Peer) {
	c.Peer = peer
	c.Joined = false
	c.InUse = true
	c.auth.Reset()
}
