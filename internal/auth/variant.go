package auth

import "fmt"

// Variant identifies which digest convention a client build uses. It is an index into an
// Offsets table.
type Variant int

const (
	VariantUnknown   Variant = -1
	VariantOfficial  Variant = 0
	VariantAlternate Variant = 1
)

func (v Variant) String() string {
	switch v {
	case VariantUnknown:
		return "unknown"
	case VariantOfficial:
		return "official"
	case VariantAlternate:
		return "alternate"
	default:
		return fmt.Sprintf("variant-%d", int(v))
	}
}

// Offsets is the ordered table of offsets that client builds add to the last digest byte before
// sending it. The table is treated as opaque compatibility data.
type Offsets []byte

// DefaultOffsets is the table used when none is configured.
var DefaultOffsets = Offsets{0, 1, 2}

// Resolve probes the table in order and returns the first variant whose offset makes digest
// verify.
func (o Offsets) Resolve(payload, digest []byte, secret string) (Variant, bool) {
	if len(digest) != DigestSize {
		return VariantUnknown, false
	}
	for i := range o {
		if o.Verify(Variant(i), payload, digest, secret) {
			return Variant(i), true
		}
	}
	return VariantUnknown, false
}

// Verify checks digest using only the offset of variant v.
func (o Offsets) Verify(v Variant, payload, digest []byte, secret string) bool {
	if v < 0 || int(v) >= len(o) || len(digest) != DigestSize {
		return false
	}
	var trial [DigestSize]byte
	copy(trial[:], digest)
	trial[DigestSize-1] += o[v]
	return Verify(payload, trial[:], secret)
}

// Apply returns the digest a client of variant v transmits for the correct digest d. Apply is
// the inverse of the trial digest built by Verify.
func (o Offsets) Apply(v Variant, d [DigestSize]byte) [DigestSize]byte {
	if v >= 0 && int(v) < len(o) {
		d[DigestSize-1] -= o[v]
	}
	return d
}
