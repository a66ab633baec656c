package provider

import (
	"strings"
	"time"

	"github.com/mattjoyce/hookguard/internal/crypto"
)

const (
	standardWebhooksIDHeader        = "webhook-id"
	standardWebhooksTimestampHeader = "webhook-timestamp"
	standardWebhooksSignatureHeader = "webhook-signature"

	// StandardWebhooksSecretPrefix is the optional prefix on Standard
	// Webhooks (and Svix) secrets.
	StandardWebhooksSecretPrefix = "whsec_"

	standardWebhooksVersion = "v1,"
)

// StandardWebhooksOptions configures a Standard Webhooks verifier.
type StandardWebhooksOptions struct {
	// Secret is the base64 signing key, optionally prefixed with "whsec_".
	Secret string

	// Tolerance bounds the age of webhook-timestamp. Zero means
	// DefaultTolerance.
	Tolerance time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// StandardWebhooks verifies https://www.standardwebhooks.com signatures:
// space-separated "v1,<base64>" tokens over "<id>.<timestamp>.<body>".
type StandardWebhooks struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewStandardWebhooks decodes the secret and returns a verifier. A secret
// that is not valid base64 after the prefix is stripped is a configuration
// error.
func NewStandardWebhooks(opts StandardWebhooksOptions) (*StandardWebhooks, error) {
	encoded := strings.TrimPrefix(opts.Secret, StandardWebhooksSecretPrefix)
	key, ok := crypto.DecodeBase64(encoded)
	if !ok {
		return nil, configError(NameStandardWebhooks, "secret must be valid base64 (with optional %s prefix)",
			StandardWebhooksSecretPrefix)
	}
	if len(key) == 0 {
		return nil, configError(NameStandardWebhooks, "secret must not be empty")
	}
	tolerance, err := resolveTolerance(NameStandardWebhooks, opts.Tolerance)
	if err != nil {
		return nil, err
	}
	return &StandardWebhooks{
		key:       key,
		tolerance: tolerance,
		now:       resolveClock(opts.Now),
	}, nil
}

// Name returns "standard-webhooks".
func (s *StandardWebhooks) Name() string { return NameStandardWebhooks }

// Verify accepts the delivery if any v1 token matches, which allows key
// rotation on the sender side.
func (s *StandardWebhooks) Verify(d *Delivery) Result {
	msgID := headerValue(d, standardWebhooksIDHeader)
	timestamp := headerValue(d, standardWebhooksTimestampHeader)
	signatures := headerValue(d, standardWebhooksSignatureHeader)
	if msgID == "" || timestamp == "" || signatures == "" {
		return Fail(ReasonMissingSignature)
	}
	if reason := checkFreshness(timestamp, s.tolerance, s.now()); reason != "" {
		return Fail(reason)
	}

	signed := concat([]byte(msgID+"."+timestamp+"."), rawBody(d))
	expected := crypto.Sum(crypto.SHA256, s.key, signed)

	for _, token := range strings.Split(signatures, " ") {
		encoded, found := strings.CutPrefix(token, standardWebhooksVersion)
		if !found {
			continue
		}
		if received, ok := crypto.DecodeBase64(encoded); ok && crypto.Equal(expected, received) {
			return OK()
		}
	}
	return Fail(ReasonInvalidSignature)
}
