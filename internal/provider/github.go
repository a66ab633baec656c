package provider

import (
	"strings"

	"github.com/mattjoyce/hookguard/internal/crypto"
)

const (
	githubSignatureHeader = "X-Hub-Signature-256"
	githubSignaturePrefix = "sha256="
)

// GitHubOptions configures a GitHub verifier.
type GitHubOptions struct {
	Secret string
}

// GitHub verifies X-Hub-Signature-256 ("sha256=<hex>") over the raw body.
type GitHub struct {
	secret []byte
}

// NewGitHub validates opts and returns a GitHub verifier.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	if opts.Secret == "" {
		return nil, configError(NameGitHub, "secret must not be empty")
	}
	return &GitHub{secret: []byte(opts.Secret)}, nil
}

// Name returns "github".
func (g *GitHub) Name() string { return NameGitHub }

// Verify checks the delivery. A header without the sha256= prefix is
// invalid rather than missing.
func (g *GitHub) Verify(d *Delivery) Result {
	value := headerValue(d, githubSignatureHeader)
	if value == "" {
		return Fail(ReasonMissingSignature)
	}
	if !strings.HasPrefix(value, githubSignaturePrefix) {
		return Fail(ReasonInvalidSignature)
	}

	received, ok := crypto.DecodeHex(strings.TrimPrefix(value, githubSignaturePrefix))
	if !ok {
		return Fail(ReasonInvalidSignature)
	}

	expected := crypto.Sum(crypto.SHA256, g.secret, rawBody(d))
	if !crypto.Equal(expected, received) {
		return Fail(ReasonInvalidSignature)
	}
	return OK()
}
