package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
)

// Algorithm selects the hash underlying an HMAC.
type Algorithm struct {
	name string
	new  func() hash.Hash
}

var (
	// SHA256 is HMAC-SHA256, used by every provider except Twilio.
	SHA256 = Algorithm{name: "SHA-256", new: sha256.New}

	// SHA1 is HMAC-SHA1, used by Twilio.
	SHA1 = Algorithm{name: "SHA-1", new: sha1.New}
)

// String returns the algorithm name, e.g. "SHA-256".
func (a Algorithm) String() string {
	return a.name
}

// Sum computes the HMAC of message under key.
//
// Text secrets are passed as their UTF-8 bytes ([]byte(secret)); providers
// whose secret is itself encoded pass the decoded raw key.
func Sum(alg Algorithm, key, message []byte) []byte {
	if alg.new == nil {
		panic("crypto: zero Algorithm")
	}
	mac := hmac.New(alg.new, key)
	mac.Write(message)
	return mac.Sum(nil)
}
