// Package masterserver connects to a line-protocol master server, which registers the gate,
// pushes global bans and answers user lookups.
package masterserver

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sauerbraten/chef/pkg/ips"
	"github.com/sauerbraten/maitred/v2/pkg/protocol"

	"github.com/polusgg/plugin-polusgg-auth/internal/bans"
)

// sendQueueSize bounds the messages waiting to be written to the master server.
const sendQueueSize = 32

type MasterServer struct {
	addr       string
	listenPort int
	bans       *bans.BanManager

	*LookupProvider

	inc  chan string
	done chan struct{}

	// RetryDelay is multiplied by the attempt number between reconnection attempts.
	RetryDelay time.Duration

	µ          sync.Mutex
	conn       *protocol.Conn
	out        chan string
	pingFailed bool
	closed     bool
}

// NewMaster connects to the specified master server. Bans received from the master server are
// added to the given ban manager, which may be nil. Messages from the master server must be
// passed to Handle.
func NewMaster(addr string, listenPort int, bm *bans.BanManager) (*MasterServer, <-chan string, error) {
	ms := &MasterServer{
		addr:       addr,
		listenPort: listenPort,
		bans:       bm,
		inc:        make(chan string),
		done:       make(chan struct{}),
		RetryDelay: 30 * time.Second,
	}
	ms.LookupProvider = newLookupProvider(ms.Send)

	if err := ms.connect(); err != nil {
		return nil, nil, err
	}

	return ms, ms.inc, nil
}

func (ms *MasterServer) connect() error {
	raddr, err := net.ResolveTCPAddr("tcp", ms.addr)
	if err != nil {
		return errors.Wrapf(err, "error resolving master server address (%s)", ms.addr)
	}

	tcpConn, err := net.DialTCP("tcp", nil, raddr)
	if err != nil {
		return errors.Wrap(err, "error connecting to master server")
	}

	gone := make(chan struct{})
	out := make(chan string, sendQueueSize)

	var conn *protocol.Conn
	conn = protocol.NewConn(func(err error) {
		close(gone)
		ms.disconnected(conn, err)
	})

	ms.µ.Lock()
	ms.conn, ms.out = conn, out
	ms.µ.Unlock()

	conn.Start(tcpConn)

	go func() {
		for {
			select {
			case msg := <-conn.Incoming():
				select {
				case ms.inc <- msg:
				case <-ms.done:
					return
				}
			case <-gone:
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case msg := <-out:
				conn.Send("%s", msg)
			case <-gone:
				return
			}
		}
	}()

	ms.Register()

	return nil
}

func (ms *MasterServer) disconnected(conn *protocol.Conn, err error) {
	ms.µ.Lock()
	if ms.conn == conn {
		ms.conn, ms.out = nil, nil
	}
	retry := !ms.closed && !ms.pingFailed
	ms.µ.Unlock()

	if !retry {
		return
	}

	log.Warn().Err(err).Msgf("disconnected from master server %s", ms.addr)
	go ms.reconnect()
}

func (ms *MasterServer) reconnect() {
	var err error
	try, maxTries := 1, 10
	for try <= maxTries {
		select {
		case <-time.After(time.Duration(try) * ms.RetryDelay):
		case <-ms.done:
			return
		}

		log.Info().Msgf("trying to reconnect to master server (attempt %d)", try)
		if err = ms.connect(); err == nil {
			log.Info().Msg("reconnected to master server")
			return
		}
		try++
	}

	log.Error().Err(err).Msg("could not reconnect to master server")
}

// Connected reports whether there is a live connection to the master server.
func (ms *MasterServer) Connected() bool {
	ms.µ.Lock()
	defer ms.µ.Unlock()
	return ms.conn != nil
}

func (ms *MasterServer) Register() {
	ms.µ.Lock()
	pingFailed := ms.pingFailed
	ms.µ.Unlock()
	if pingFailed {
		return
	}

	log.Info().Msg("registering at master server")
	if err := ms.Send("%s %d", protocol.RegServ, ms.listenPort); err != nil {
		log.Warn().Err(err).Msg("registering at master server failed")
	}
}

// Send queues a message for the master server.
func (ms *MasterServer) Send(format string, args ...interface{}) error {
	ms.µ.Lock()
	out := ms.out
	ms.µ.Unlock()

	if out == nil {
		return errors.New("not connected to master server")
	}

	select {
	case out <- fmt.Sprintf(format, args...):
		return nil
	default:
		return errors.New("master server send queue is full")
	}
}

// Close disconnects from the master server for good.
func (ms *MasterServer) Close() {
	ms.µ.Lock()
	if ms.closed {
		ms.µ.Unlock()
		return
	}
	ms.closed = true
	conn := ms.conn
	ms.µ.Unlock()

	close(ms.done)
	if conn != nil {
		conn.Close()
	}
}

func (ms *MasterServer) Handle(msg string) {
	cmd := strings.Split(msg, " ")[0]
	args := strings.TrimSpace(msg[len(cmd):])

	switch cmd {
	case protocol.SuccReg:
		log.Info().Msg("master server registration succeeded")

	case protocol.FailReg:
		log.Warn().Msgf("master server registration failed: %s", args)
		if args == "failed pinging server" {
			log.Warn().Msg("disabling reconnecting")
			ms.µ.Lock()
			ms.pingFailed = true // stop trying
			ms.µ.Unlock()
		}

	case protocol.ClearBans:
		if ms.bans != nil {
			ms.bans.ClearGlobalBans()
		}

	case protocol.AddBan:
		ms.handleAddGlobalBan(args)

	case protocol.SuccLookup, protocol.FailLookup:
		ms.LookupProvider.handle(cmd, args)

	default:
		log.Debug().Msgf("received from master: %s", msg)
	}
}

func (ms *MasterServer) handleAddGlobalBan(args string) {
	var ip string
	_, err := fmt.Sscanf(args, "%s", &ip)
	if err != nil {
		log.Warn().Err(err).Msgf("malformed %s message from master server: '%s'", protocol.AddBan, args)
		return
	}

	network := ips.GetSubnet(ip)
	if network == nil {
		log.Warn().Msgf("malformed %s message from master server: '%s'", protocol.AddBan, args)
		return
	}

	if ms.bans != nil {
		ms.bans.AddBan(network, "banned by master server", time.Time{}, true)
	}
}
