// Package auth implements the per-packet authentication primitives used by the gate.
//
// Every authenticated datagram carries an HMAC-SHA1 digest of its payload, keyed with a secret
// that was issued to the user out of band. The server learns the secret by looking up the user by
// the client identifier carried next to the digest, recomputes the digest over the payload and
// compares both in constant time.
//
// Different client builds do not all transmit the digest exactly as computed: some add a small
// offset to its last byte. Offsets models that as an ordered compatibility table; a connection
// probes the table once and then sticks to the offset that matched.
package auth

import (
	"crypto/hmac"
	"crypto/sha1"
)

// DigestSize is the size of the keyed digest carried in every envelope.
const DigestSize = sha1.Size

// Sign computes the keyed digest of payload under secret, the same way clients do.
func Sign(payload []byte, secret string) (digest [DigestSize]byte) {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(payload)
	copy(digest[:], mac.Sum(nil))
	return
}

// Verify reports whether digest is the keyed digest of payload under secret.
// Digests of the wrong length never verify.
func Verify(payload, digest []byte, secret string) bool {
	if len(digest) != DigestSize {
		return false
	}
	expected := Sign(payload, secret)
	return hmac.Equal(expected[:], digest)
}
