// Package envelope implements the authentication envelope that prefixes every authenticated
// datagram:
//
//	byte 0       magic (0x80)
//	bytes 1-16   client identifier
//	bytes 17-36  keyed digest of the payload
//	bytes 37-    payload
package envelope

import (
	"github.com/google/uuid"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
)

const (
	Magic byte = 0x80

	ClientIDSize = 16
	DigestSize   = auth.DigestSize
	HeaderSize   = 1 + ClientIDSize + DigestSize
)

// Envelope is a decoded authenticated datagram. Payload aliases the raw datagram.
type Envelope struct {
	ClientID [ClientIDSize]byte
	Digest   [DigestSize]byte
	Payload  []byte
}

// Decode splits an authenticated datagram into its parts. The checks run in order of increasing
// datagram length.
func Decode(raw []byte) (Envelope, error) {
	switch {
	case len(raw) == 0:
		return Envelope{}, newFrameError(KindTooShort, len(raw))
	case raw[0] != Magic:
		return Envelope{}, newFrameError(KindBadMagic, len(raw))
	case len(raw) < HeaderSize:
		return Envelope{}, newFrameError(KindTooShort, len(raw))
	case len(raw) == HeaderSize:
		return Envelope{}, newFrameError(KindEmptyPayload, len(raw))
	}

	var e Envelope
	copy(e.ClientID[:], raw[1:1+ClientIDSize])
	copy(e.Digest[:], raw[1+ClientIDSize:HeaderSize])
	e.Payload = raw[HeaderSize:]
	return e, nil
}

// Encode assembles an authenticated datagram.
func Encode(clientID [ClientIDSize]byte, digest [DigestSize]byte, payload []byte) []byte {
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, Magic)
	buf = append(buf, clientID[:]...)
	buf = append(buf, digest[:]...)
	return append(buf, payload...)
}

// Seal signs payload with secret the way a client of the given variant does and encodes the
// result.
func Seal(clientID uuid.UUID, secret string, payload []byte, offsets auth.Offsets, v auth.Variant) []byte {
	digest := offsets.Apply(v, auth.Sign(payload, secret))
	return Encode(clientID, digest, payload)
}

// IsAnonymous reports whether the envelope carries the reserved all-zero identifier of a client
// that is not logged in.
func (e Envelope) IsAnonymous() bool {
	return e.ClientID == [ClientIDSize]byte{}
}

// ClientIDString renders the identifier in its external form.
func (e Envelope) ClientIDString() string {
	return FormatClientID(e.ClientID)
}

// FormatClientID renders 16 identifier bytes as lowercase dashed hex in 4-2-2-2-6 byte groups.
func FormatClientID(id [ClientIDSize]byte) string {
	return uuid.UUID(id).String()
}
