package hazel

import "encoding/binary"

// Packet is a growable buffer with a read position.
type Packet struct {
	buf []byte
	pos int
}

func New() *Packet { return &Packet{} }

func FromBytes(b []byte) *Packet { return &Packet{buf: b} }

func (p *Packet) Len() int { return len(p.buf) }

func (p *Packet) HasRemaining() bool { return p.pos < len(p.buf) }

// Bytes returns the unread part of the packet.
func (p *Packet) Bytes() []byte { return p.buf[p.pos:] }

func (p *Packet) PutByte(b byte) { p.buf = append(p.buf, b) }

func (p *Packet) PutBytes(b []byte) { p.buf = append(p.buf, b...) }

func (p *Packet) PutUint16BE(v uint16) {
	p.buf = append(p.buf, byte(v>>8), byte(v))
}

func (p *Packet) PutUint16LE(v uint16) {
	p.buf = append(p.buf, byte(v), byte(v>>8))
}

// PutPackedUint32 appends v using 7 bits per byte, least significant group first.
func (p *Packet) PutPackedUint32(v uint32) {
	for v >= 0x80 {
		p.buf = append(p.buf, byte(v)|0x80)
		v >>= 7
	}
	p.buf = append(p.buf, byte(v))
}

// PutString appends a length-prefixed string.
func (p *Packet) PutString(s string) {
	p.PutPackedUint32(uint32(len(s)))
	p.buf = append(p.buf, s...)
}

// PutMessage appends a tagged message: length (uint16, little endian), tag, body.
func (p *Packet) PutMessage(tag byte, body []byte) {
	p.PutUint16LE(uint16(len(body)))
	p.PutByte(tag)
	p.PutBytes(body)
}

func (p *Packet) GetByte() (byte, bool) {
	if p.pos >= len(p.buf) {
		return 0, false
	}
	b := p.buf[p.pos]
	p.pos++
	return b, true
}

func (p *Packet) GetBytes(n int) ([]byte, bool) {
	if n < 0 || p.pos+n > len(p.buf) {
		return nil, false
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b, true
}

func (p *Packet) GetUint16LE() (uint16, bool) {
	b, ok := p.GetBytes(2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (p *Packet) GetPackedUint32() (uint32, bool) {
	var v uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, ok := p.GetByte()
		if !ok {
			return 0, false
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, true
		}
	}
	return 0, false
}

func (p *Packet) GetString() (string, bool) {
	n, ok := p.GetPackedUint32()
	if !ok {
		return "", false
	}
	b, ok := p.GetBytes(int(n))
	if !ok {
		return "", false
	}
	return string(b), true
}

// GetMessage reads one tagged message.
func (p *Packet) GetMessage() (tag byte, body []byte, ok bool) {
	n, ok := p.GetUint16LE()
	if !ok {
		return
	}
	tag, ok = p.GetByte()
	if !ok {
		return
	}
	body, ok = p.GetBytes(int(n))
	return
}
