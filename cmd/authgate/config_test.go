package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(fileName, []byte(contents), 0o644))
	return fileName
}

func TestLoadConfigDefaults(t *testing.T) {
	fileName := writeConfig(t, `{
	// user API
	"lookup_url": "https://api.example.com/v1",
	"auth_token": "secret"
}
`)

	conf, err := LoadConfig(fileName)
	require.NoError(t, err)

	assert.Equal(t, 22023, conf.ListenPort)
	assert.True(t, conf.EnableAuthentication)
	assert.Equal(t, lookupHTTP, conf.Lookup)
	assert.Equal(t, 10*time.Second, conf.LookupTimeout)
	assert.Equal(t, 30*time.Second, conf.PeerTimeout)
	assert.Equal(t, []int{0, 1, 2}, conf.VariantOffsets)
	assert.Equal(t, 64, conf.MaxPendingPackets)
	assert.Equal(t, "bans.json", conf.BansFile)
	assert.Equal(t, "info", conf.LogLevel)
}

func TestLoadConfigOverrides(t *testing.T) {
	fileName := writeConfig(t, `{
	"listen_address": "127.0.0.1",
	"listen_port": 22100,
	"enable_authentication": false,
	"lookup": "file",
	"users_file": "players.json",
	"lookup_timeout": 3,
	"variant_offsets": [0, 255],
	"max_pending_packets": 8,
	"peer_timeout": 0,
	"status_address": "127.0.0.1:9100",
	"log_level": "debug"
}
`)

	conf, err := LoadConfig(fileName)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", conf.ListenAddress)
	assert.Equal(t, 22100, conf.ListenPort)
	assert.False(t, conf.EnableAuthentication)
	assert.Equal(t, "players.json", conf.UsersFile)
	assert.Equal(t, 3*time.Second, conf.LookupTimeout)
	assert.Equal(t, time.Duration(0), conf.PeerTimeout)
	assert.Equal(t, "127.0.0.1:9100", conf.StatusAddress)

	gc := conf.gateConfig()
	assert.False(t, gc.Enabled)
	assert.Equal(t, auth.Offsets{0, 255}, gc.Offsets)
	assert.Equal(t, 3*time.Second, gc.LookupTimeout)
	assert.Equal(t, 8, gc.MaxPending)
	assert.True(t, gc.Passthrough([]byte{0x0a, 0x00, 0x01, 0xff}))
	assert.False(t, gc.Passthrough([]byte{0x80}))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.LookupURL = "http://localhost:8080"
		c.AuthToken = "token"
		return c
	}
	require.NoError(t, valid().Validate())

	for name, mutate := range map[string]func(c *Config){
		"port out of range":   func(c *Config) { c.ListenPort = 70000 },
		"unknown lookup":      func(c *Config) { c.Lookup = "ldap" },
		"http without url":    func(c *Config) { c.LookupURL = "" },
		"http without token":  func(c *Config) { c.AuthToken = "" },
		"file without file":   func(c *Config) { c.Lookup, c.UsersFile = lookupFile, "" },
		"master without addr": func(c *Config) { c.Lookup = lookupMaster },
		"no offsets":          func(c *Config) { c.VariantOffsets = nil },
		"offset too big":      func(c *Config) { c.VariantOffsets = []int{0, 256} },
		"negative offset":     func(c *Config) { c.VariantOffsets = []int{-1} },
		"no pending room":     func(c *Config) { c.MaxPendingPackets = 0 },
		"negative timeout":    func(c *Config) { c.LookupTimeout = -1 },
		"negative peer idle":  func(c *Config) { c.PeerTimeout = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
