package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
)

const testClientID = "00112233-4455-6677-8899-aabbccddeeff"

func testUser() *auth.User {
	return &auth.User{
		ClientID:    uuid.MustParse(testClientID),
		DisplayName: "Saghetti",
		Secret:      "abc",
	}
}

func TestInMemoryProvider(t *testing.T) {
	p := NewInMemoryProvider([]*auth.User{testUser()})

	u, err := p.GetUser(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, "Saghetti", u.DisplayName)

	u, err = p.GetUser(context.Background(), "00112233-4455-6677-8899-AABBCCDDEEFF")
	require.NoError(t, err)
	assert.Equal(t, "abc", u.Secret)

	_, err = p.GetUser(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, ErrNotFound))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GetUser(ctx, testClientID)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInMemoryProviderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	data := `[
	// a test user
	{
		"client_id": "` + testClientID + `",
		"display_name": "Saghetti",
		"client_secret": "abc"
	}
]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	p, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, p.NumUsers())

	u, err := p.GetUser(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, "Saghetti", u.DisplayName)
}

func TestInMemoryProviderPut(t *testing.T) {
	p := NewInMemoryProvider(nil)
	p.Put(testUser())
	_, err := p.GetUser(context.Background(), testClientID)
	assert.NoError(t, err)
}

func TestRequester(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0ken" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/users/" + testClientID:
			json.NewEncoder(w).Encode(testUser())
		case "/api/users/11111111-1111-1111-1111-111111111111":
			json.NewEncoder(w).Encode(testUser())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r, err := NewRequester(srv.URL+"/api/", "t0ken")
	require.NoError(t, err)

	u, err := r.GetUser(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, testClientID, u.ClientID.String())
	assert.Equal(t, "abc", u.Secret)

	_, err = r.GetUser(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, ErrNotFound), "%v", err)

	_, err = r.GetUser(context.Background(), "11111111-1111-1111-1111-111111111111")
	assert.Error(t, err, "mismatched client ID must fail")

	unauthorized, err := NewRequester(srv.URL+"/api", "wrong")
	require.NoError(t, err)
	_, err = unauthorized.GetUser(context.Background(), testClientID)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestNewRequesterRejectsBadURL(t *testing.T) {
	_, err := NewRequester("ftp://example.com", "")
	assert.Error(t, err)
	_, err = NewRequester("://", "")
	assert.Error(t, err)
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(ctx context.Context, id string) (*auth.User, error) {
		return nil, ErrNotFound
	})
	_, err := p.GetUser(context.Background(), testClientID)
	assert.Equal(t, ErrNotFound, err)
}
