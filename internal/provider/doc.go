// Package provider verifies inbound webhook deliveries for Stripe, GitHub,
// Slack, Shopify, Twilio, LINE, Discord and Standard Webhooks senders.
//
// Each sender has its own verifier type built from an options struct. The
// constructor validates key material up front and returns an error wrapping
// ErrConfig for degenerate input (an empty secret, a malformed encoding, a
// wrong key length). A constructed verifier is immutable and safe to share
// across goroutines.
//
// Verification never returns an error. The outcome is a Result whose Reason
// is one of:
//
//   - missing-signature: a required header is absent, or a signed timestamp
//     is not a finite positive number
//   - invalid-signature: the signature is malformed or does not match
//   - timestamp-expired: a well-formed timestamp is outside the tolerance
//
// # Wire formats
//
//	stripe             Stripe-Signature: t=<unix>,v1=<hex>[,v1=<hex>]   "<t>.<body>"          HMAC-SHA256 hex
//	github             X-Hub-Signature-256: sha256=<hex>                 body                  HMAC-SHA256 hex
//	slack              X-Slack-Signature: v0=<hex>                       "v0:<ts>:<body>"      HMAC-SHA256 hex
//	shopify            X-Shopify-Hmac-Sha256: <base64>                   body                  HMAC-SHA256 base64
//	twilio             X-Twilio-Signature: <base64>                      url + sorted params   HMAC-SHA1 base64
//	line               X-Line-Signature: <base64>                        body                  HMAC-SHA256 base64
//	discord            X-Signature-Ed25519: <hex>                        "<ts><body>"          Ed25519
//	standard-webhooks  webhook-signature: v1,<base64> [v1,<base64>]      "<id>.<ts>.<body>"    HMAC-SHA256 base64
//
// # Usage
//
//	gh, err := provider.NewGitHub(provider.GitHubOptions{Secret: os.Getenv("GITHUB_WEBHOOK_SECRET")})
//	if err != nil {
//		return err
//	}
//	res := gh.Verify(&provider.Delivery{RawBody: body, Header: r.Header})
//	if !res.Valid {
//		// res.Reason says why
//	}
//
// Custom senders plug in through Define; Detect and Auto pick a provider from
// the request headers.
package provider
