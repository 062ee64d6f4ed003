package client

import (
	"sync"

	"github.com/polusgg/plugin-polusgg-auth/internal/net/udp"
)

type ClientManager struct {
	µ       sync.RWMutex
	clients []*Client
	byPeer  map[*udp.Peer]*Client

	inbound func(c *Client, payload []byte)
}

// NewClientManager returns a manager whose clients pass delivered payloads to inbound.
func NewClientManager(inbound func(c *Client, payload []byte)) *ClientManager {
	if inbound == nil {
		inbound = func(*Client, []byte) {}
	}
	return &ClientManager{
		byPeer:  map[*udp.Peer]*Client{},
		inbound: inbound,
	}
}

// Links a peer to a client object. If no unused client object can be found, a new one is created.
func (cm *ClientManager) Add(peer *udp.Peer) *Client {
	cm.µ.Lock()
	defer cm.µ.Unlock()

	if c, ok := cm.byPeer[peer]; ok {
		return c
	}

	// re-use unused client object with low cn
	for _, c := range cm.clients {
		if !c.InUse {
			c.reset(peer)
			cm.byPeer[peer] = c
			return c
		}
	}

	c := newClient(int32(len(cm.clients)), peer, cm)
	cm.clients = append(cm.clients, c)
	cm.byPeer[peer] = c
	return c
}

func (cm *ClientManager) release(c *Client) {
	cm.µ.Lock()
	defer cm.µ.Unlock()

	c.InUse = false
	if cm.byPeer[c.Peer] == c {
		delete(cm.byPeer, c.Peer)
	}
}

func (cm *ClientManager) GetClientByPeer(peer *udp.Peer) *Client {
	cm.µ.RLock()
	defer cm.µ.RUnlock()
	return cm.byPeer[peer]
}

func (cm *ClientManager) ForEach(do func(c *Client)) {
	cm.µ.RLock()
	defer cm.µ.RUnlock()

	for _, c := range cm.clients {
		if c.InUse {
			do(c)
		}
	}
}

// Returns the number of connected clients.
func (cm *ClientManager) NumberOfClientsConnected() int {
	cm.µ.RLock()
	defer cm.µ.RUnlock()
	return len(cm.byPeer)
}

// Returns the number of connected clients with a resolved identity.
func (cm *ClientManager) NumberOfClientsAuthenticated() (n int) {
	cm.ForEach(func(c *Client) {
		if c.Authenticated() {
			n++
		}
	})
	return
}
