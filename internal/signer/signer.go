// Package signer produces the signature headers each supported sender would
// attach to a delivery. It is the mirror image of package provider and is
// used by tests and the `hookguard sign` command to build valid requests.
package signer

import (
	"crypto/ed25519"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/hookguard/internal/crypto"
	"github.com/mattjoyce/hookguard/internal/provider"
)

// Unix formats t as a decimal Unix timestamp, the form every timestamped
// scheme signs.
func Unix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// Stripe returns a Stripe-Signature header with one v1 signature.
func Stripe(secret string, body []byte, timestamp string) http.Header {
	h := make(http.Header)
	h.Set("Stripe-Signature", "t="+timestamp+",v1="+StripeSignature(secret, body, timestamp))
	return h
}

// StripeSignature returns the hex v1 signature for body at timestamp.
func StripeSignature(secret string, body []byte, timestamp string) string {
	msg := append([]byte(timestamp+"."), body...)
	return crypto.EncodeHex(crypto.Sum(crypto.SHA256, []byte(secret), msg))
}

// GitHub returns an X-Hub-Signature-256 header.
func GitHub(secret string, body []byte) http.Header {
	h := make(http.Header)
	h.Set("X-Hub-Signature-256", "sha256="+crypto.EncodeHex(crypto.Sum(crypto.SHA256, []byte(secret), body)))
	return h
}

// Slack returns X-Slack-Signature and X-Slack-Request-Timestamp headers.
func Slack(secret string, body []byte, timestamp string) http.Header {
	msg := append([]byte("v0:"+timestamp+":"), body...)
	h := make(http.Header)
	h.Set("X-Slack-Request-Timestamp", timestamp)
	h.Set("X-Slack-Signature", "v0="+crypto.EncodeHex(crypto.Sum(crypto.SHA256, []byte(secret), msg)))
	return h
}

// Shopify returns an X-Shopify-Hmac-Sha256 header.
func Shopify(secret string, body []byte) http.Header {
	h := make(http.Header)
	h.Set("X-Shopify-Hmac-Sha256", crypto.EncodeBase64(crypto.Sum(crypto.SHA256, []byte(secret), body)))
	return h
}

// Twilio returns an X-Twilio-Signature header for a form body posted to url.
func Twilio(authToken, url string, form []byte) http.Header {
	sig := crypto.Sum(crypto.SHA1, []byte(authToken), provider.TwilioSigningString(url, form))
	h := make(http.Header)
	h.Set("X-Twilio-Signature", crypto.EncodeBase64(sig))
	return h
}

// Line returns an X-Line-Signature header.
func Line(channelSecret string, body []byte) http.Header {
	h := make(http.Header)
	h.Set("X-Line-Signature", crypto.EncodeBase64(crypto.Sum(crypto.SHA256, []byte(channelSecret), body)))
	return h
}

// Discord returns X-Signature-Ed25519 and X-Signature-Timestamp headers.
func Discord(key ed25519.PrivateKey, body []byte, timestamp string) http.Header {
	sig := ed25519.Sign(key, append([]byte(timestamp), body...))
	h := make(http.Header)
	h.Set("X-Signature-Ed25519", crypto.EncodeHex(sig))
	h.Set("X-Signature-Timestamp", timestamp)
	return h
}

// StandardWebhooks returns webhook-id, webhook-timestamp and
// webhook-signature headers. secret is base64, optionally "whsec_" prefixed.
func StandardWebhooks(secret, msgID string, body []byte, timestamp string) (http.Header, error) {
	key, ok := crypto.DecodeBase64(strings.TrimPrefix(secret, provider.StandardWebhooksSecretPrefix))
	if !ok {
		return nil, fmt.Errorf("standard-webhooks secret is not valid base64")
	}
	msg := append([]byte(msgID+"."+timestamp+"."), body...)
	h := make(http.Header)
	h.Set("webhook-id", msgID)
	h.Set("webhook-timestamp", timestamp)
	h.Set("webhook-signature", "v1,"+crypto.EncodeBase64(crypto.Sum(crypto.SHA256, key, msg)))
	return h, nil
}

// NewMessageID returns a fresh Standard Webhooks message id.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}

// Input carries everything Sign may need. Fields irrelevant to the chosen
// provider are ignored.
type Input struct {
	Secret     string
	PrivateKey ed25519.PrivateKey
	Body       []byte
	Timestamp  string
	URL        string
	MessageID  string
}

// Sign dispatches to the signer for the named provider.
func Sign(name string, in Input) (http.Header, error) {
	needSecret := name != provider.NameDiscord
	if needSecret && in.Secret == "" {
		return nil, fmt.Errorf("%s: secret is required", name)
	}
	ts := in.Timestamp
	if ts == "" {
		ts = Unix(time.Now())
	}

	switch name {
	case provider.NameStripe:
		return Stripe(in.Secret, in.Body, ts), nil
	case provider.NameGitHub:
		return GitHub(in.Secret, in.Body), nil
	case provider.NameSlack:
		return Slack(in.Secret, in.Body, ts), nil
	case provider.NameShopify:
		return Shopify(in.Secret, in.Body), nil
	case provider.NameTwilio:
		if in.URL == "" {
			return nil, fmt.Errorf("twilio: url is required")
		}
		return Twilio(in.Secret, in.URL, in.Body), nil
	case provider.NameLine:
		return Line(in.Secret, in.Body), nil
	case provider.NameDiscord:
		if len(in.PrivateKey) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("discord: an ed25519 private key is required")
		}
		return Discord(in.PrivateKey, in.Body, ts), nil
	case provider.NameStandardWebhooks:
		id := in.MessageID
		if id == "" {
			id = NewMessageID()
		}
		return StandardWebhooks(in.Secret, id, in.Body, ts)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
