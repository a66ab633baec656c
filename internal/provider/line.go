package provider

import "github.com/mattjoyce/hookguard/internal/crypto"

const lineSignatureHeader = "X-Line-Signature"

// LineOptions configures a LINE Messaging API verifier.
type LineOptions struct {
	ChannelSecret string
}

// Line verifies base64 HMAC-SHA256 signatures over the raw body.
type Line struct {
	secret []byte
}

// NewLine validates opts and returns a Line verifier.
func NewLine(opts LineOptions) (*Line, error) {
	if opts.ChannelSecret == "" {
		return nil, configError(NameLine, "channel secret must not be empty")
	}
	return &Line{secret: []byte(opts.ChannelSecret)}, nil
}

// Name returns "line".
func (l *Line) Name() string { return NameLine }

func (l *Line) Verify(d *Delivery) Result {
	value := headerValue(d, lineSignatureHeader)
	if value == "" {
		return Fail(ReasonMissingSignature)
	}
	return verifyBase64HMAC(crypto.SHA256, l.secret, rawBody(d), value)
}
