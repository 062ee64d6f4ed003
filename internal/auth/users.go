package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// User is the identity record the gate fetches once per connection.
type User struct {
	ClientID    uuid.UUID
	DisplayName string
	Secret      string // HMAC key for packet digests, not an API credential
	Banned      bool
	BannedUntil *time.Time
}

// userJSON is the wire form of a user record as served by the user API and stored in users.json.
type userJSON struct {
	ClientID    string     `json:"client_id"`
	DisplayName string     `json:"display_name"`
	Secret      string     `json:"client_secret"`
	Banned      bool       `json:"banned"`
	BannedUntil *time.Time `json:"banned_until"`
}

func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(userJSON{
		ClientID:    u.ClientID.String(),
		DisplayName: u.DisplayName,
		Secret:      u.Secret,
		Banned:      u.Banned,
		BannedUntil: u.BannedUntil,
	})
}

func (u *User) UnmarshalJSON(data []byte) error {
	proxy := &userJSON{}
	err := json.Unmarshal(data, proxy)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(proxy.ClientID)
	if err != nil {
		return errors.Wrapf(err, "invalid value for 'client_id' (%q)", proxy.ClientID)
	}
	if proxy.Secret == "" {
		return errors.New("missing value for 'client_secret'")
	}
	u.ClientID = id
	u.DisplayName = proxy.DisplayName
	u.Secret = proxy.Secret
	u.Banned = proxy.Banned
	u.BannedUntil = proxy.BannedUntil
	return nil
}

func (u *User) String() string {
	return fmt.Sprintf("%s [%s]", u.DisplayName, u.ClientID)
}

// BanReason returns the disconnect reason for a banned user.
func (u *User) BanReason() string {
	if u.BannedUntil == nil {
		return "You are permanently banned."
	}
	return fmt.Sprintf("You are banned until %s.", u.BannedUntil.UTC().Format(time.RFC3339))
}
