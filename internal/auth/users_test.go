package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserUnmarshal(t *testing.T) {
	data := []byte(`{
		"client_id": "00112233-4455-6677-8899-aabbccddeeff",
		"display_name": "Saghetti",
		"client_secret": "abc",
		"banned": true,
		"banned_until": "2030-01-02T03:04:05Z"
	}`)

	var u User
	require.NoError(t, json.Unmarshal(data, &u))
	assert.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", u.ClientID.String())
	assert.Equal(t, "Saghetti", u.DisplayName)
	assert.Equal(t, "abc", u.Secret)
	assert.True(t, u.Banned)
	require.NotNil(t, u.BannedUntil)
	assert.True(t, u.BannedUntil.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestUserUnmarshalRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "bad client id", data: `{"client_id": "nope", "client_secret": "abc"}`},
		{name: "missing secret", data: `{"client_id": "00112233-4455-6677-8899-aabbccddeeff"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var u User
			assert.Error(t, json.Unmarshal([]byte(tc.data), &u))
		})
	}
}

func TestUserMarshalRoundTrip(t *testing.T) {
	u, err := GenerateUser("Roy")
	require.NoError(t, err)

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var got User
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, u.ClientID, got.ClientID)
	assert.Equal(t, u.Secret, got.Secret)
	assert.Len(t, got.Secret, 2*secretSize)
}

func TestBanReason(t *testing.T) {
	until := time.Date(2031, 5, 6, 7, 8, 9, 0, time.FixedZone("CEST", 2*60*60))
	u := &User{Banned: true, BannedUntil: &until}
	assert.Contains(t, u.BanReason(), "2031-05-06T05:08:09Z")

	u.BannedUntil = nil
	assert.Contains(t, u.BanReason(), "permanently")
}
