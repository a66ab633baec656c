package provider

import (
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mattjoyce/hookguard/internal/crypto"
)

const twilioSignatureHeader = "X-Twilio-Signature"

// TwilioOptions configures a Twilio verifier.
type TwilioOptions struct {
	AuthToken string
}

// Twilio verifies base64 HMAC-SHA1 signatures over the request URL followed
// by every form parameter's key and value, sorted by key.
type Twilio struct {
	token []byte
}

// NewTwilio validates opts and returns a Twilio verifier.
func NewTwilio(opts TwilioOptions) (*Twilio, error) {
	if opts.AuthToken == "" {
		return nil, configError(NameTwilio, "auth token must not be empty")
	}
	return &Twilio{token: []byte(opts.AuthToken)}, nil
}

// Name returns "twilio".
func (t *Twilio) Name() string { return NameTwilio }

// Verify needs Delivery.URL. Without it the signed string cannot be rebuilt,
// so the delivery is invalid rather than missing a signature.
func (t *Twilio) Verify(d *Delivery) Result {
	signature := headerValue(d, twilioSignatureHeader)
	if signature == "" {
		return Fail(ReasonMissingSignature)
	}
	if d.URL == "" {
		return Fail(ReasonInvalidSignature)
	}
	return verifyBase64HMAC(crypto.SHA1, t.token, TwilioSigningString(d.URL, rawBody(d)), signature)
}

// TwilioSigningString builds the byte string Twilio signs for a form POST.
func TwilioSigningString(url string, form []byte) []byte {
	pairs := parseForm(form)
	// Stable: repeated keys keep the order they were sent in.
	sort.SliceStable(pairs, func(i, j int) bool {
		return lessUTF16(pairs[i].key, pairs[j].key)
	})

	var b strings.Builder
	b.WriteString(url)
	for _, p := range pairs {
		b.WriteString(p.key)
		b.WriteString(p.value)
	}
	return []byte(b.String())
}

type formPair struct {
	key, value string
}

// parseForm splits an application/x-www-form-urlencoded body into ordered
// pairs. A leading "?" is dropped, empty segments are skipped and a segment
// without "=" has an empty value. Invalid UTF-8, in the body or produced by
// %XX escapes, becomes U+FFFD.
func parseForm(form []byte) []formPair {
	s := strings.TrimPrefix(toValidUTF8(string(form)), "?")
	if s == "" {
		return nil
	}
	var pairs []formPair
	for _, segment := range strings.Split(s, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		pairs = append(pairs, formPair{key: formUnescape(key), value: formUnescape(value)})
	}
	return pairs
}

// formUnescape turns "+" into a space and decodes %XX escapes. Malformed
// escapes are kept literally instead of failing the whole body.
func formUnescape(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s):
			if decoded, ok := crypto.DecodeHex(s[i+1 : i+3]); ok {
				b.Write(decoded)
				i += 2
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return toValidUTF8(b.String())
}

// toValidUTF8 replaces each maximal invalid subsequence of s with U+FFFD,
// the way the WHATWG UTF-8 decoder does. strings.ToValidUTF8 collapses whole
// runs instead, which would change the signed string.
func toValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)

	needed, seen := 0, 0
	lower, upper := byte(0x80), byte(0xBF)
	var cp rune
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needed == 0 {
			switch {
			case c <= 0x7F:
				b.WriteByte(c)
			case c >= 0xC2 && c <= 0xDF:
				needed, cp = 1, rune(c&0x1F)
			case c >= 0xE0 && c <= 0xEF:
				if c == 0xE0 {
					lower = 0xA0
				} else if c == 0xED {
					upper = 0x9F
				}
				needed, cp = 2, rune(c&0x0F)
			case c >= 0xF0 && c <= 0xF4:
				if c == 0xF0 {
					lower = 0x90
				} else if c == 0xF4 {
					upper = 0x8F
				}
				needed, cp = 3, rune(c&0x07)
			default:
				b.WriteRune(utf8.RuneError)
			}
			continue
		}

		if c < lower || c > upper {
			// The sequence ends here; c starts over.
			needed, seen, cp = 0, 0, 0
			lower, upper = 0x80, 0xBF
			b.WriteRune(utf8.RuneError)
			i--
			continue
		}
		lower, upper = 0x80, 0xBF
		cp = cp<<6 | rune(c&0x3F)
		seen++
		if seen == needed {
			b.WriteRune(cp)
			needed, seen, cp = 0, 0, 0
		}
	}
	if needed != 0 {
		b.WriteRune(utf8.RuneError)
	}
	return b.String()
}

// lessUTF16 orders valid UTF-8 strings by their UTF-16 code units. This
// differs from byte order only between supplementary characters and
// U+E000..U+FFFF.
func lessUTF16(a, b string) bool {
	for a != "" && b != "" {
		ra, na := utf8.DecodeRuneInString(a)
		rb, nb := utf8.DecodeRuneInString(b)
		if ra != rb {
			ua, ub := firstUTF16Unit(ra), firstUTF16Unit(rb)
			if ua != ub {
				return ua < ub
			}
			return ra < rb
		}
		a, b = a[na:], b[nb:]
	}
	return a == "" && b != ""
}

func firstUTF16Unit(r rune) rune {
	if r < 0x10000 {
		return r
	}
	hi, _ := utf16.EncodeRune(r)
	return hi
}
