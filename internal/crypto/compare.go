package crypto

import "crypto/subtle"

// Equal reports whether a and b hold the same bytes.
//
// Length is not treated as secret: a length mismatch returns false at once.
// Equal-length inputs are compared in full with crypto/subtle, so the time
// taken does not depend on where the first differing byte sits.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
