package provider

import (
	"strings"
	"time"

	"github.com/mattjoyce/hookguard/internal/crypto"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeOptions configures a Stripe verifier.
type StripeOptions struct {
	// Secret is the endpoint signing secret (whsec_...), used as-is.
	Secret string

	// Tolerance bounds the age of the signed timestamp. Zero means
	// DefaultTolerance.
	Tolerance time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Stripe verifies Stripe-Signature headers of the form
// "t=<unix>,v1=<hex>[,v1=<hex>...]" over "<t>.<body>".
type Stripe struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewStripe validates opts and returns a Stripe verifier.
func NewStripe(opts StripeOptions) (*Stripe, error) {
	if opts.Secret == "" {
		return nil, configError(NameStripe, "secret must not be empty")
	}
	tolerance, err := resolveTolerance(NameStripe, opts.Tolerance)
	if err != nil {
		return nil, err
	}
	return &Stripe{
		secret:    []byte(opts.Secret),
		tolerance: tolerance,
		now:       resolveClock(opts.Now),
	}, nil
}

// Name returns "stripe".
func (s *Stripe) Name() string { return NameStripe }

// Verify checks the delivery against every v1 signature in the header; any
// match passes, which lets a rotated secret overlap with the old one.
func (s *Stripe) Verify(d *Delivery) Result {
	value := headerValue(d, stripeSignatureHeader)
	if value == "" {
		return Fail(ReasonMissingSignature)
	}

	timestamp, signatures := parseStripeHeader(value)
	if timestamp == "" || len(signatures) == 0 {
		return Fail(ReasonMissingSignature)
	}
	if reason := checkFreshness(timestamp, s.tolerance, s.now()); reason != "" {
		return Fail(reason)
	}

	expected := crypto.Sum(crypto.SHA256, s.secret, concat([]byte(timestamp), []byte("."), rawBody(d)))
	for _, sig := range signatures {
		received, ok := crypto.DecodeHex(sig)
		if ok && crypto.Equal(expected, received) {
			return OK()
		}
	}
	return Fail(ReasonInvalidSignature)
}

// parseStripeHeader returns the first t value and all v1 values. Parts
// without "=" are ignored; keys and values are trimmed.
func parseStripeHeader(value string) (timestamp string, signatures []string) {
	seenTimestamp := false
	for _, part := range strings.Split(value, ",") {
		key, val, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "t":
			if !seenTimestamp {
				timestamp = val
				seenTimestamp = true
			}
		case "v1":
			signatures = append(signatures, val)
		}
	}
	return timestamp, signatures
}
