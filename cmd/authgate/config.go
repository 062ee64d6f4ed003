package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sauerbraten/jsonfile"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/gate"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/hazel"
)

const (
	lookupHTTP   = "http"
	lookupFile   = "file"
	lookupMaster = "master"
)

type Config struct {
	ListenAddress string `json:"listen_address"`
	ListenPort    int    `json:"listen_port"`

	EnableAuthentication bool          `json:"enable_authentication"`
	AuthToken            string        `json:"auth_token"`
	Lookup               string        `json:"lookup"`
	LookupURL            string        `json:"lookup_url"`
	UsersFile            string        `json:"users_file"`
	MasterServerAddress  string        `json:"master_server_address"`
	LookupTimeout        time.Duration `json:"lookup_timeout"` // seconds
	VariantOffsets       []int         `json:"variant_offsets"`
	MaxPendingPackets    int           `json:"max_pending_packets"`

	PeerTimeout   time.Duration `json:"peer_timeout"` // seconds
	BansFile      string        `json:"bans_file"`
	StatusAddress string        `json:"status_address"`
	LogLevel      string        `json:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenPort:           22023,
		EnableAuthentication: true,
		Lookup:               lookupHTTP,
		UsersFile:            "users.json",
		LookupTimeout:        10,
		VariantOffsets:       []int{0, 1, 2},
		MaxPendingPackets:    64,
		PeerTimeout:          30,
		BansFile:             "bans.json",
		LogLevel:             "info",
	}
}

// LoadConfig parses a config file on top of the defaults and validates the result.
func LoadConfig(fileName string) (*Config, error) {
	conf := DefaultConfig()
	err := jsonfile.ParseFile(fileName, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", fileName)
	}

	// durations are parsed without unit from the config file
	conf.LookupTimeout = conf.LookupTimeout * time.Second
	conf.PeerTimeout = conf.PeerTimeout * time.Second

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return errors.Errorf("listen_port %d out of range", c.ListenPort)
	}

	switch c.Lookup {
	case lookupHTTP:
		if c.LookupURL == "" {
			return errors.New("lookup_url is required for http lookups")
		}
		if c.AuthToken == "" {
			return errors.New("auth_token is required for http lookups")
		}
	case lookupFile:
		if c.UsersFile == "" {
			return errors.New("users_file is required for file lookups")
		}
	case lookupMaster:
		if c.MasterServerAddress == "" {
			return errors.New("master_server_address is required for master lookups")
		}
	default:
		return errors.Errorf("unknown lookup %q (want %s, %s or %s)", c.Lookup, lookupHTTP, lookupFile, lookupMaster)
	}

	if len(c.VariantOffsets) == 0 {
		return errors.New("variant_offsets must not be empty")
	}
	for _, o := range c.VariantOffsets {
		if o < 0 || o > 255 {
			return errors.Errorf("variant offset %d is not a byte", o)
		}
	}

	if c.MaxPendingPackets < 1 {
		return errors.New("max_pending_packets must be at least 1")
	}
	if c.LookupTimeout < 0 {
		return errors.New("lookup_timeout must not be negative")
	}
	if c.PeerTimeout < 0 {
		return errors.New("peer_timeout must not be negative")
	}

	return nil
}

func (c *Config) gateConfig() gate.Config {
	offsets := make(auth.Offsets, len(c.VariantOffsets))
	for i, o := range c.VariantOffsets {
		offsets[i] = byte(o)
	}

	return gate.Config{
		Enabled:       c.EnableAuthentication,
		Offsets:       offsets,
		LookupTimeout: c.LookupTimeout,
		MaxPending:    c.MaxPendingPackets,
		Passthrough:   hazel.IsAcknowledgement,
	}
}
