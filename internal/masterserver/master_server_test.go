package masterserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/bans"
	"github.com/polusgg/plugin-polusgg-auth/internal/lookup"
)

// fakeMaster accepts a single game server connection.
type fakeMaster struct {
	ln    net.Listener
	conn  net.Conn
	lines chan string
}

func newFakeMaster(t *testing.T) *fakeMaster {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return &fakeMaster{ln: ln, lines: make(chan string, 16)}
}

func (m *fakeMaster) accept(t *testing.T) {
	t.Helper()
	conn, err := m.ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	m.conn = conn
	go func() {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			m.lines <- sc.Text()
		}
	}()
}

func (m *fakeMaster) expect(t *testing.T) string {
	t.Helper()
	select {
	case line := <-m.lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message from game server")
	}
	return ""
}

func (m *fakeMaster) reply(t *testing.T, format string, args ...interface{}) {
	t.Helper()
	_, err := fmt.Fprintf(m.conn, format+"\n", args...)
	require.NoError(t, err)
}

// connect starts a MasterServer against a fake master and handles its messages in the
// background, the way the event loop would.
func connect(t *testing.T, bm *bans.BanManager) (*MasterServer, *fakeMaster) {
	t.Helper()
	m := newFakeMaster(t)

	accepted := make(chan struct{})
	go func() {
		m.accept(t)
		close(accepted)
	}()

	ms, inc, err := NewMaster(m.ln.Addr().String(), 22023, bm)
	require.NoError(t, err)
	t.Cleanup(ms.Close)
	<-accepted

	go func() {
		for {
			select {
			case msg := <-inc:
				ms.Handle(msg)
			case <-ms.done:
				return
			}
		}
	}()

	assert.Equal(t, "regserv 22023", m.expect(t))
	return ms, m
}

func TestRegisters(t *testing.T) {
	ms, m := connect(t, nil)
	assert.True(t, ms.Connected())

	m.reply(t, "succreg")
	ms.Register()
	assert.Equal(t, "regserv 22023", m.expect(t))
}

func TestLookup(t *testing.T) {
	ms, m := connect(t, nil)

	u, err := auth.GenerateUser("Alice")
	require.NoError(t, err)
	userJSON, err := json.Marshal(u)
	require.NoError(t, err)

	type result struct {
		user *auth.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := ms.GetUser(context.Background(), u.ClientID.String())
		done <- result{user, err}
	}()

	assert.Equal(t, fmt.Sprintf("lookup 0 %s", u.ClientID), m.expect(t))
	m.reply(t, "succlookup 0 %s", userJSON)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, u.ClientID, r.user.ClientID)
		assert.Equal(t, u.Secret, r.user.Secret)
		assert.Equal(t, "Alice", r.user.DisplayName)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not return")
	}
}

func TestLookupRejectsOtherUser(t *testing.T) {
	ms, m := connect(t, nil)

	asked, err := auth.GenerateUser("Alice")
	require.NoError(t, err)
	other, err := auth.GenerateUser("Mallory")
	require.NoError(t, err)
	otherJSON, err := json.Marshal(other)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		user, err := ms.GetUser(context.Background(), asked.ClientID.String())
		assert.Nil(t, user)
		done <- err
	}()

	assert.Equal(t, fmt.Sprintf("lookup 0 %s", asked.ClientID), m.expect(t))
	m.reply(t, "succlookup 0 %s", otherJSON)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.False(t, errors.Is(err, lookup.ErrNotFound))
		assert.Contains(t, err.Error(), other.ClientID.String())
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not return")
	}
}

func TestLookupMatchesClientIDCaseInsensitively(t *testing.T) {
	ms, m := connect(t, nil)

	u, err := auth.GenerateUser("Alice")
	require.NoError(t, err)
	userJSON, err := json.Marshal(u)
	require.NoError(t, err)
	upper := strings.ToUpper(u.ClientID.String())

	done := make(chan error, 1)
	go func() {
		_, err := ms.GetUser(context.Background(), upper)
		done <- err
	}()

	assert.Equal(t, "lookup 0 "+upper, m.expect(t))
	m.reply(t, "succlookup 0 %s", userJSON)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not return")
	}
}

func TestFailedLookup(t *testing.T) {
	ms, m := connect(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := ms.GetUser(context.Background(), "00112233-4455-6677-8899-aabbccddeeff")
		done <- err
	}()

	assert.Equal(t, "lookup 0 00112233-4455-6677-8899-aabbccddeeff", m.expect(t))
	m.reply(t, "faillookup 0 no such user")

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, lookup.ErrNotFound))
		assert.Contains(t, err.Error(), "no such user")
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not return")
	}
}

func TestLookupTimesOut(t *testing.T) {
	ms, m := connect(t, nil)
	ms.RequestTimeout = 20 * time.Millisecond

	_, err := ms.GetUser(context.Background(), "00112233-4455-6677-8899-aabbccddeeff")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	m.expect(t)

	// a late answer is dropped
	m.reply(t, "succlookup 0 {}")
}

func TestLookupHonoursCancellation(t *testing.T) {
	ms, m := connect(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ms.GetUser(ctx, "00112233-4455-6677-8899-aabbccddeeff")
		done <- err
	}()
	m.expect(t)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not return")
	}
}

func TestGlobalBans(t *testing.T) {
	bm := bans.New()
	_, m := connect(t, bm)

	m.reply(t, "addgban 10.20.30.40")
	m.reply(t, "addgban 172.16.")

	assert.Eventually(t, func() bool { return bm.NumBans() == 2 }, 2*time.Second, 10*time.Millisecond)

	ban, ok := bm.GetBan(net.ParseIP("10.20.30.99"))
	require.True(t, ok)
	assert.True(t, ban.Global)
	assert.Equal(t, "banned by master server", ban.Reason)

	_, ok = bm.GetBan(net.ParseIP("172.16.200.1"))
	assert.True(t, ok)

	m.reply(t, "cleargbans")
	assert.Eventually(t, func() bool { return bm.NumBans() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSendAfterClose(t *testing.T) {
	ms, _ := connect(t, nil)
	ms.Close()

	assert.Eventually(t, func() bool { return !ms.Connected() }, 2*time.Second, 10*time.Millisecond)
	assert.Error(t, ms.Send("%s", "ping"))

	_, err := ms.GetUser(context.Background(), "00112233-4455-6677-8899-aabbccddeeff")
	assert.Error(t, err)
}

func TestNewMasterFailsWithoutServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, _, err = NewMaster(addr, 22023, nil)
	assert.Error(t, err)
}
