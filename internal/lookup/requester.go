package lookup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
)

// maxResponseSize limits how much of a user API response is read.
const maxResponseSize = 1 << 20

// Requester fetches users from the user API over HTTP:
//
//	GET <base>/users/<client id>
//	Authorization: Bearer <token>
type Requester struct {
	base   *url.URL
	token  string
	client *http.Client
}

func NewRequester(baseURL, token string) (*Requester, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "lookup: invalid user API URL %q", baseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("lookup: unsupported user API scheme %q", base.Scheme)
	}
	return &Requester{
		base:   base,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (r *Requester) GetUser(ctx context.Context, clientID string) (*auth.User, error) {
	u := *r.base
	u.Path += "/users/" + url.PathEscape(clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "lookup: building request")
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup: requesting user %s", clientID)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.Errorf("lookup: user API returned %s for %s", resp.Status, clientID)
	}

	var user auth.User
	err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&user)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup: decoding user %s", clientID)
	}
	if !strings.EqualFold(user.ClientID.String(), clientID) {
		return nil, errors.Errorf("lookup: user API returned user %s for %s", user.ClientID, clientID)
	}
	return &user, nil
}
