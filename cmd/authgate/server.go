package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/polusgg/plugin-polusgg-auth/internal/bans"
	"github.com/polusgg/plugin-polusgg-auth/internal/client"
	"github.com/polusgg/plugin-polusgg-auth/internal/gate"
	"github.com/polusgg/plugin-polusgg-auth/internal/masterserver"
	"github.com/polusgg/plugin-polusgg-auth/internal/metrics"
	"github.com/polusgg/plugin-polusgg-auth/internal/net/udp"
	"github.com/polusgg/plugin-polusgg-auth/internal/status"
)

type Server struct {
	*Config
	Host    *udp.Host
	Gate    *gate.Gate
	Clients *client.ClientManager
	Bans    *bans.BanManager

	// optional
	Master    *masterserver.MasterServer
	masterInc <-chan string
	Status    *status.Server
}

func NewServer(conf *Config, host *udp.Host, g *gate.Gate, bm *bans.BanManager) *Server {
	if bm == nil {
		bm = bans.New()
	}
	s := &Server{
		Config: conf,
		Host:   host,
		Gate:   g,
		Bans:   bm,
	}
	s.Clients = client.NewClientManager(s.handlePayload)
	return s
}

// UseMaster makes the event loop handle messages from the master server.
func (s *Server) UseMaster(ms *masterserver.MasterServer, inc <-chan string) {
	s.Master, s.masterInc = ms, inc
}

// Run is the event loop. Everything that touches client state happens on it.
func (s *Server) Run(ctx context.Context) error {
	events := s.Host.Service(ctx)

	statsTicker := time.NewTicker(1 * time.Second)
	defer statsTicker.Stop()
	registerTicker := time.NewTicker(1 * time.Hour)
	defer registerTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("udp host stopped")
			}
			s.handleEvent(event)

		case cm := <-s.Gate.Completions():
			s.Gate.Complete(cm)

		case msg := <-s.masterInc:
			s.Master.Handle(msg)

		case <-statsTicker.C:
			s.publishStats()

		case <-registerTicker.C:
			if s.Master != nil {
				s.Master.Register()
			}
		}
	}
}

func (s *Server) handleEvent(event udp.Event) {
	switch event.Type {
	case udp.EventTypeConnect:
		s.Connect(event.Peer)

	case udp.EventTypeDisconnect:
		c := s.Clients.GetClientByPeer(event.Peer)
		if c == nil {
			return
		}
		c.Leave()

	case udp.EventTypeReceive:
		c := s.Clients.GetClientByPeer(event.Peer)
		if c == nil {
			return
		}
		s.handleDatagram(c, event.Data)
	}
}

// Connect admits a new peer unless its address is banned.
func (s *Server) Connect(peer *udp.Peer) {
	if ban, ok := s.Bans.GetBan(peer.Address.IP); ok {
		log.Info().Msgf("connection from banned IP %s refused (%s)", peer.Address.IP, ban)
		metrics.RecordRejection("ip banned")
		peer.Disconnect(banMessage(ban))
		return
	}

	c := s.Clients.Add(peer)
	log.Debug().Msgf("connected: %s", c)
}

// handleDatagram runs a datagram through the gate and hands what survives to protocol handling.
func (s *Server) handleDatagram(c *client.Client, raw []byte) {
	frame, verdict := s.Gate.Transform(c, raw)
	switch verdict {
	case gate.Pass, gate.Accept:
		s.handlePayload(c, frame)
	}
}

func (s *Server) publishStats() {
	peers := s.Clients.NumberOfClientsConnected()
	metrics.SetPeers(peers)

	if s.Status == nil {
		return
	}
	s.Status.Update(status.Stats{
		Peers:              peers,
		AuthenticatedPeers: s.Clients.NumberOfClientsAuthenticated(),
		Bans:               s.Bans.NumBans(),
		MasterConnected:    s.Master != nil && s.Master.Connected(),
	})
}

func banMessage(ban *bans.Ban) string {
	if ban.Reason == "" {
		return "You are banned from this server."
	}
	return fmt.Sprintf("You are banned from this server: %s", ban.Reason)
}
