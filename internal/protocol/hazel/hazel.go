// Package hazel knows just enough of the Hazel datagram framing to sit in front of a game server:
// packet types, reliable nonces, acknowledgements and disconnect packets.
package hazel

import "encoding/binary"

type PacketType byte

const (
	Normal          PacketType = 0x00
	Reliable        PacketType = 0x01
	Hello           PacketType = 0x08
	Disconnect      PacketType = 0x09
	Acknowledgement PacketType = 0x0a
	Ping            PacketType = 0x0c
)

func (t PacketType) String() string {
	switch t {
	case Normal:
		return "normal"
	case Reliable:
		return "reliable"
	case Hello:
		return "hello"
	case Disconnect:
		return "disconnect"
	case Acknowledgement:
		return "acknowledgement"
	case Ping:
		return "ping"
	default:
		return "unknown"
	}
}

// IsReliable reports whether packets of this type carry a nonce and must be acknowledged.
func (t PacketType) IsReliable() bool {
	return t == Reliable || t == Hello || t == Ping
}

// DisconnectReasonCustom marks a disconnect carrying a free-form reason string.
const DisconnectReasonCustom byte = 0x08

// TypeOf returns the type of a raw datagram.
func TypeOf(raw []byte) (PacketType, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	return PacketType(raw[0]), true
}

// IsAcknowledgement reports whether raw is a transport acknowledgement. Acknowledgements are not
// wrapped in an authentication envelope.
func IsAcknowledgement(raw []byte) bool {
	t, ok := TypeOf(raw)
	return ok && t == Acknowledgement
}

// Nonce returns the nonce of a reliable packet or of an acknowledgement.
func Nonce(raw []byte) (uint16, bool) {
	t, ok := TypeOf(raw)
	if !ok || !(t.IsReliable() || t == Acknowledgement) || len(raw) < 3 {
		return 0, false
	}
	return binary.BigEndian.Uint16(raw[1:3]), true
}

// Body returns the datagram without its header.
func Body(raw []byte) []byte {
	t, ok := TypeOf(raw)
	switch {
	case !ok:
		return nil
	case t.IsReliable():
		if len(raw) < 3 {
			return nil
		}
		return raw[3:]
	default:
		return raw[1:]
	}
}

// NewAcknowledgement builds the acknowledgement for a reliable packet.
func NewAcknowledgement(nonce uint16) []byte {
	p := New()
	p.PutByte(byte(Acknowledgement))
	p.PutUint16BE(nonce)
	p.PutByte(0xff) // no missing packets
	return p.Bytes()
}

// NewDisconnect builds a forced disconnect carrying reason.
func NewDisconnect(reason string) []byte {
	msg := New()
	msg.PutByte(DisconnectReasonCustom)
	msg.PutString(reason)

	p := New()
	p.PutByte(byte(Disconnect))
	p.PutByte(1) // forced
	p.PutMessage(0, msg.Bytes())
	return p.Bytes()
}

// ReadDisconnectReason extracts the custom reason from a disconnect packet built by
// NewDisconnect.
func ReadDisconnectReason(raw []byte) (string, bool) {
	t, ok := TypeOf(raw)
	if !ok || t != Disconnect {
		return "", false
	}
	p := FromBytes(raw[1:])
	if _, ok := p.GetByte(); !ok {
		return "", false
	}
	_, body, ok := p.GetMessage()
	if !ok {
		return "", false
	}
	msg := FromBytes(body)
	reason, ok := msg.GetByte()
	if !ok || reason != DisconnectReasonCustom {
		return "", false
	}
	return msg.GetString()
}
