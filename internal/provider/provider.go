package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stable provider identifiers, as returned by Name and Detect.
const (
	NameStripe           = "stripe"
	NameGitHub           = "github"
	NameSlack            = "slack"
	NameShopify          = "shopify"
	NameTwilio           = "twilio"
	NameLine             = "line"
	NameDiscord          = "discord"
	NameStandardWebhooks = "standard-webhooks"
)

// DefaultTolerance is the replay window applied by Stripe, Slack and
// Standard Webhooks when no tolerance is configured.
const DefaultTolerance = 300 * time.Second

// ErrConfig is wrapped by every construction-time error. A provider that
// fails construction must never be used to verify anything.
var ErrConfig = errors.New("invalid provider configuration")

// Reason explains why a delivery failed verification.
type Reason string

const (
	// ReasonMissingSignature means the signature, or data needed to evaluate
	// it (such as a well-formed timestamp), was absent.
	ReasonMissingSignature Reason = "missing-signature"

	// ReasonInvalidSignature means the signature was present but malformed or
	// did not match.
	ReasonInvalidSignature Reason = "invalid-signature"

	// ReasonTimestampExpired means a well-formed timestamp fell outside the
	// configured tolerance.
	ReasonTimestampExpired Reason = "timestamp-expired"
)

func (r Reason) String() string {
	return string(r)
}

// Delivery is a single inbound webhook request as seen by a verifier.
type Delivery struct {
	// RawBody is the body exactly as received. Signatures cover these bytes,
	// so it must never be re-encoded.
	RawBody []byte

	// Header is looked up case-insensitively through Header.Get.
	Header http.Header

	// URL is the full request URL the sender signed. Only Twilio needs it.
	URL string
}

// Result is the outcome of verifying a delivery. Reason is empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

// OK returns a passing result.
func OK() Result {
	return Result{Valid: true}
}

// Fail returns a failing result carrying reason.
func Fail(reason Reason) Result {
	return Result{Valid: false, Reason: reason}
}

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks github.com/mattjoyce/hookguard/internal/provider Provider

// Provider verifies deliveries for one sender.
//
// Implementations hold only immutable, already-validated key material and are
// safe for concurrent use. Verify never panics on request content; every
// decode or crypto failure is reported as a failing Result.
type Provider interface {
	Name() string
	Verify(d *Delivery) Result
}

func configError(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrConfig, name, fmt.Sprintf(format, args...))
}

func headerValue(d *Delivery, key string) string {
	if d == nil || d.Header == nil {
		return ""
	}
	return d.Header.Get(key)
}

func rawBody(d *Delivery) []byte {
	if d == nil {
		return nil
	}
	return d.RawBody
}

// concat joins signed message parts without intermediate string copies of
// the body.
func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
