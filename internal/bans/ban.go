package bans

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sauerbraten/chef/pkg/ips"
)

// Ban refuses connections from a network before they get to authenticate.
type Ban struct {
	Network    *net.IPNet
	Reason     string
	ExpiryDate time.Time // zero means indefinitely
	Global     bool      // set by the master server
}

// UnmarshalJSON implements json.Unmarshaler for Ban. Networks may be partial ("123.45.") or
// CIDR ranges.
func (b *Ban) UnmarshalJSON(jsonBytes []byte) error {
	ban := struct {
		Network    string `json:"network"`
		Reason     string `json:"reason"`
		ExpiryDate int64  `json:"expiry_date"`
	}{}
	err := json.Unmarshal(jsonBytes, &ban)
	if err != nil {
		return errors.Wrap(err, "bans: malformed ban")
	}

	if !ips.IsPartialOrFullCIDR(ban.Network) {
		return errors.Errorf("bans: invalid network %q", ban.Network)
	}
	b.Network = ips.GetSubnet(ban.Network)
	if b.Network == nil {
		return errors.Errorf("bans: invalid network %q", ban.Network)
	}
	b.Reason = ban.Reason
	if ban.ExpiryDate != 0 {
		b.ExpiryDate = time.Unix(ban.ExpiryDate, 0)
	}

	return nil
}

func (b *Ban) Expired(now time.Time) bool {
	return !b.ExpiryDate.IsZero() && b.ExpiryDate.Before(now)
}

func (b *Ban) String() string {
	if b.ExpiryDate.IsZero() {
		return fmt.Sprintf("%v is banned indefinitely (%v)", b.Network.String(), b.Reason)
	}
	return fmt.Sprintf("%v is banned until %v (%v)", b.Network.String(), b.ExpiryDate, b.Reason)
}
