package main

import (
	"github.com/rs/zerolog/log"

	"github.com/polusgg/plugin-polusgg-auth/internal/client"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/hazel"
)

// handlePayload is the normal inbound path for authenticated Hazel packets.
func (s *Server) handlePayload(c *client.Client, payload []byte) {
	typ, ok := hazel.TypeOf(payload)
	if !ok {
		return
	}

	if typ.IsReliable() {
		nonce, ok := hazel.Nonce(payload)
		if !ok {
			log.Debug().Msgf("truncated %s packet from %s", typ, c)
			return
		}
		c.Send(hazel.NewAcknowledgement(nonce))
	}

	switch typ {
	case hazel.Acknowledgement:
		// nothing is sent reliably, nothing to track

	case hazel.Hello:
		if !c.Joined {
			c.Joined = true
			log.Info().Msgf("join: %s", c)
		}

	case hazel.Disconnect:
		c.Leave()

	case hazel.Ping:

	case hazel.Normal, hazel.Reliable:
		log.Debug().Msgf("%d bytes of %s data from %s", len(hazel.Body(payload)), typ, c)

	default:
		log.Debug().Msgf("unhandled packet type 0x%02x from %s", byte(typ), c)
	}
}
