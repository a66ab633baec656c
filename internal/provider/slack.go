package provider

import (
	"strings"
	"time"

	"github.com/mattjoyce/hookguard/internal/crypto"
)

const (
	slackSignatureHeader = "X-Slack-Signature"
	slackTimestampHeader = "X-Slack-Request-Timestamp"
	slackVersion         = "v0"
)

// SlackOptions configures a Slack verifier.
type SlackOptions struct {
	SigningSecret string

	// Tolerance bounds the age of X-Slack-Request-Timestamp. Zero means
	// DefaultTolerance.
	Tolerance time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Slack verifies "v0=<hex>" signatures over "v0:<timestamp>:<body>".
type Slack struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewSlack validates opts and returns a Slack verifier.
func NewSlack(opts SlackOptions) (*Slack, error) {
	if opts.SigningSecret == "" {
		return nil, configError(NameSlack, "signing secret must not be empty")
	}
	tolerance, err := resolveTolerance(NameSlack, opts.Tolerance)
	if err != nil {
		return nil, err
	}
	return &Slack{
		secret:    []byte(opts.SigningSecret),
		tolerance: tolerance,
		now:       resolveClock(opts.Now),
	}, nil
}

// Name returns "slack".
func (s *Slack) Name() string { return NameSlack }

// Verify checks the timestamp window before looking at the signature.
func (s *Slack) Verify(d *Delivery) Result {
	signature := headerValue(d, slackSignatureHeader)
	timestamp := headerValue(d, slackTimestampHeader)
	if signature == "" || timestamp == "" {
		return Fail(ReasonMissingSignature)
	}
	if reason := checkFreshness(timestamp, s.tolerance, s.now()); reason != "" {
		return Fail(reason)
	}

	hexSig, found := strings.CutPrefix(signature, slackVersion+"=")
	if !found {
		return Fail(ReasonInvalidSignature)
	}
	received, ok := crypto.DecodeHex(hexSig)
	if !ok {
		return Fail(ReasonInvalidSignature)
	}

	base := concat([]byte(slackVersion+":"+timestamp+":"), rawBody(d))
	if !crypto.Equal(crypto.Sum(crypto.SHA256, s.secret, base), received) {
		return Fail(ReasonInvalidSignature)
	}
	return OK()
}
