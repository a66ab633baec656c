// Package crypto holds the primitives shared by every provider verifier:
// strict hex/base64 codecs, HMAC computation and constant-time comparison.
//
// Decoders never panic and never return errors for attacker-controlled
// input; they report failure through a boolean so callers can map it to a
// verification outcome.
package crypto

import (
	"encoding/base64"
	"encoding/hex"
)

// EncodeHex returns the lowercase hex encoding of b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes a hex string. Upper and lower case digits are accepted.
// ok is false for odd-length input or any character outside [0-9a-fA-F].
func DecodeHex(s string) (b []byte, ok bool) {
	if len(s)%2 != 0 {
		return nil, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

// EncodeBase64 returns the standard, padded base64 encoding of b.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 decodes standard, padded base64. ok is false for anything
// base64.StdEncoding rejects.
func DecodeBase64(s string) (b []byte, ok bool) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}
