package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/polusgg/plugin-polusgg-auth/internal/bans"
	"github.com/polusgg/plugin-polusgg-auth/internal/gate"
	"github.com/polusgg/plugin-polusgg-auth/internal/logging"
	"github.com/polusgg/plugin-polusgg-auth/internal/lookup"
	"github.com/polusgg/plugin-polusgg-auth/internal/masterserver"
	"github.com/polusgg/plugin-polusgg-auth/internal/metrics"
	"github.com/polusgg/plugin-polusgg-auth/internal/net/udp"
	"github.com/polusgg/plugin-polusgg-auth/internal/status"
)

func main() {
	configFile := "config.json"
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}

	conf, err := LoadConfig(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if _, err := logging.Configure("authgate", conf.LogLevel, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	metrics.Register()

	bm, err := bans.FromFile(conf.BansFile)
	if err != nil {
		log.Fatal().Err(err).Msgf("could not load bans from %s", conf.BansFile)
	}

	var (
		ms        *masterserver.MasterServer
		masterInc <-chan string
	)
	if conf.MasterServerAddress != "" {
		ms, masterInc, err = masterserver.NewMaster(conf.MasterServerAddress, conf.ListenPort, bm)
		if err != nil {
			if conf.Lookup == lookupMaster {
				log.Fatal().Err(err).Msg("could not connect to master server")
			}
			log.Error().Err(err).Msg("could not connect to master server")
		} else {
			defer ms.Close()
		}
	}

	provider, err := newProvider(conf, ms)
	if err != nil {
		log.Fatal().Err(err).Msg("could not set up user lookups")
	}

	host, err := udp.NewHost(conf.ListenAddress, conf.ListenPort, conf.PeerTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("could not start UDP host")
	}

	g := gate.New(conf.gateConfig(), provider)
	defer g.Close()

	s := NewServer(conf, host, g, bm)
	if ms != nil {
		s.UseMaster(ms, masterInc)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	if conf.StatusAddress != "" {
		s.Status = status.New(conf.StatusAddress)
		group.Go(func() error { return s.Status.Serve(ctx) })
	}

	group.Go(func() error { return s.Run(ctx) })

	if !conf.EnableAuthentication {
		log.Warn().Msg("authentication is disabled, all packets are forwarded unchecked")
	}
	log.Info().Msgf("server running on %s", host.Addr())

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}

func newProvider(conf *Config, ms *masterserver.MasterServer) (lookup.Provider, error) {
	switch conf.Lookup {
	case lookupHTTP:
		r, err := lookup.NewRequester(conf.LookupURL, conf.AuthToken)
		if err != nil {
			return nil, err
		}
		return r, nil

	case lookupFile:
		p, err := lookup.FromFile(conf.UsersFile)
		if err != nil {
			return nil, err
		}
		log.Info().Msgf("loaded %d users from %s", p.NumUsers(), conf.UsersFile)
		return p, nil

	case lookupMaster:
		if ms == nil {
			return nil, errors.New("not connected to master server")
		}
		return ms.LookupProvider, nil

	default:
		return nil, errors.Errorf("unknown lookup %q", conf.Lookup)
	}
}
