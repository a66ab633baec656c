package provider

import (
	"crypto/ed25519"
	"time"

	"github.com/mattjoyce/hookguard/internal/crypto"
)

const (
	discordSignatureHeader = "X-Signature-Ed25519"
	discordTimestampHeader = "X-Signature-Timestamp"
)

// DiscordOptions configures a Discord interactions verifier.
type DiscordOptions struct {
	// PublicKey is the application's Ed25519 public key, 64 hex characters.
	PublicKey string

	// Tolerance enables a timestamp window when positive. Zero skips the
	// check entirely.
	Tolerance time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Discord verifies Ed25519 signatures over "<timestamp><body>".
//
// The public key is decoded and checked once in NewDiscord, so a Discord
// value carries no lazily initialised state.
type Discord struct {
	key       ed25519.PublicKey
	tolerance time.Duration
	now       func() time.Time
}

// NewDiscord validates opts and returns a Discord verifier.
func NewDiscord(opts DiscordOptions) (*Discord, error) {
	raw, ok := crypto.DecodeHex(opts.PublicKey)
	if !ok {
		return nil, configError(NameDiscord, "public key must be a valid hex string")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, configError(NameDiscord, "public key must be %d bytes (%d hex characters), got %d bytes",
			ed25519.PublicKeySize, ed25519.PublicKeySize*2, len(raw))
	}
	if opts.Tolerance < 0 {
		return nil, configError(NameDiscord, "tolerance must not be negative, got %s", opts.Tolerance)
	}
	return &Discord{
		key:       ed25519.PublicKey(raw),
		tolerance: opts.Tolerance,
		now:       resolveClock(opts.Now),
	}, nil
}

// Name returns "discord".
func (dc *Discord) Name() string { return NameDiscord }

func (dc *Discord) Verify(d *Delivery) Result {
	signature := headerValue(d, discordSignatureHeader)
	timestamp := headerValue(d, discordTimestampHeader)
	if signature == "" || timestamp == "" {
		return Fail(ReasonMissingSignature)
	}

	if dc.tolerance > 0 {
		if reason := checkFreshness(timestamp, dc.tolerance, dc.now()); reason != "" {
			return Fail(reason)
		}
	}

	sig, ok := crypto.DecodeHex(signature)
	if !ok || len(sig) != ed25519.SignatureSize {
		return Fail(ReasonInvalidSignature)
	}
	if !ed25519.Verify(dc.key, concat([]byte(timestamp), rawBody(d)), sig) {
		return Fail(ReasonInvalidSignature)
	}
	return OK()
}
