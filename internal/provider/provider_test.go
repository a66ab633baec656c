package provider_test

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hookguard/internal/provider"
	"github.com/mattjoyce/hookguard/internal/signer"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func clock() time.Time { return fixedNow }

func unixAgo(d time.Duration) string {
	return signer.Unix(fixedNow.Add(-d))
}

type signedCase struct {
	name     string
	provider provider.Provider
	delivery *provider.Delivery
}

// signedCases returns one correctly signed delivery per built-in provider.
func signedCases(t *testing.T) []signedCase {
	t.Helper()

	body := []byte(`{"id":"evt_1","type":"ping"}`)
	form := []byte("To=%2B15551234567&From=%2B15557654321&Body=Hello+world")
	twilioURL := "https://example.com/hooks/sms"
	ts := signer.Unix(fixedNow)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	swSecret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("standard-webhooks-test-key-32byt"))
	swHeader, err := signer.StandardWebhooks(swSecret, "msg_1", body, ts)
	require.NoError(t, err)

	stripe, err := provider.NewStripe(provider.StripeOptions{Secret: "whsec_stripe", Now: clock})
	require.NoError(t, err)
	github, err := provider.NewGitHub(provider.GitHubOptions{Secret: "gh_secret"})
	require.NoError(t, err)
	slack, err := provider.NewSlack(provider.SlackOptions{SigningSecret: "slack_secret", Now: clock})
	require.NoError(t, err)
	shopify, err := provider.NewShopify(provider.ShopifyOptions{Secret: "shpss_secret"})
	require.NoError(t, err)
	twilio, err := provider.NewTwilio(provider.TwilioOptions{AuthToken: "twilio_token"})
	require.NoError(t, err)
	line, err := provider.NewLine(provider.LineOptions{ChannelSecret: "line_secret"})
	require.NoError(t, err)
	discord, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: hex.EncodeToString(pub)})
	require.NoError(t, err)
	sw, err := provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: swSecret, Now: clock})
	require.NoError(t, err)

	return []signedCase{
		{"stripe", stripe, &provider.Delivery{RawBody: body, Header: signer.Stripe("whsec_stripe", body, ts)}},
		{"github", github, &provider.Delivery{RawBody: body, Header: signer.GitHub("gh_secret", body)}},
		{"slack", slack, &provider.Delivery{RawBody: body, Header: signer.Slack("slack_secret", body, ts)}},
		{"shopify", shopify, &provider.Delivery{RawBody: body, Header: signer.Shopify("shpss_secret", body)}},
		{"twilio", twilio, &provider.Delivery{RawBody: form, Header: signer.Twilio("twilio_token", twilioURL, form), URL: twilioURL}},
		{"line", line, &provider.Delivery{RawBody: body, Header: signer.Line("line_secret", body)}},
		{"discord", discord, &provider.Delivery{RawBody: body, Header: signer.Discord(priv, body, ts)}},
		{"standard-webhooks", sw, &provider.Delivery{RawBody: body, Header: swHeader}},
	}
}

func TestProviders_SignedDeliveryVerifies(t *testing.T) {
	for _, tc := range signedCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.provider.Name())
			assert.Equal(t, provider.OK(), tc.provider.Verify(tc.delivery))
		})
	}
}

func TestProviders_TamperedBodyIsInvalid(t *testing.T) {
	for _, tc := range signedCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			for i := range tc.delivery.RawBody {
				for _, mask := range []byte{0x01, 0x80} {
					tampered := append([]byte(nil), tc.delivery.RawBody...)
					tampered[i] ^= mask
					d := *tc.delivery
					d.RawBody = tampered

					res := tc.provider.Verify(&d)
					assert.Equal(t, provider.Fail(provider.ReasonInvalidSignature), res,
						"byte %d flipped with %#x", i, mask)
				}
			}
		})
	}
}

func TestProviders_NoHeadersIsMissing(t *testing.T) {
	for _, tc := range signedCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			d := &provider.Delivery{RawBody: tc.delivery.RawBody, Header: http.Header{}, URL: tc.delivery.URL}
			assert.Equal(t, provider.Fail(provider.ReasonMissingSignature), tc.provider.Verify(d))
		})
	}
}

func TestProviders_NilDeliveryIsMissing(t *testing.T) {
	for _, tc := range signedCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, provider.Fail(provider.ReasonMissingSignature), tc.provider.Verify(nil))
			})
		})
	}
}

func TestProviders_VerifyIsRepeatable(t *testing.T) {
	for _, tc := range signedCases(t) {
		first := tc.provider.Verify(tc.delivery)
		second := tc.provider.Verify(tc.delivery)
		assert.Equal(t, first, second, tc.name)
	}
}

func TestConstructors_RejectBadConfig(t *testing.T) {
	tests := []struct {
		name string
		make func() error
	}{
		{"stripe empty secret", func() error { _, err := provider.NewStripe(provider.StripeOptions{}); return err }},
		{"stripe negative tolerance", func() error {
			_, err := provider.NewStripe(provider.StripeOptions{Secret: "s", Tolerance: -time.Second})
			return err
		}},
		{"github empty secret", func() error { _, err := provider.NewGitHub(provider.GitHubOptions{}); return err }},
		{"slack empty secret", func() error { _, err := provider.NewSlack(provider.SlackOptions{}); return err }},
		{"shopify empty secret", func() error { _, err := provider.NewShopify(provider.ShopifyOptions{}); return err }},
		{"twilio empty token", func() error { _, err := provider.NewTwilio(provider.TwilioOptions{}); return err }},
		{"line empty secret", func() error { _, err := provider.NewLine(provider.LineOptions{}); return err }},
		{"discord non-hex key", func() error {
			_, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: "not-hex"})
			return err
		}},
		{"discord short key", func() error {
			_, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: "abcd"})
			return err
		}},
		{"standard-webhooks bad base64", func() error {
			_, err := provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: "!!invalid!!"})
			return err
		}},
		{"standard-webhooks empty key", func() error {
			_, err := provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: "whsec_"})
			return err
		}},
		{"auto with no providers", func() error { _, err := provider.Auto(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.make()
			require.Error(t, err)
			assert.ErrorIs(t, err, provider.ErrConfig)
		})
	}
}

func TestResult_JSON(t *testing.T) {
	ok, err := json.Marshal(provider.OK())
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":true}`, string(ok))

	fail, err := json.Marshal(provider.Fail(provider.ReasonTimestampExpired))
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":false,"reason":"timestamp-expired"}`, string(fail))
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "missing-signature", provider.ReasonMissingSignature.String())
	assert.Equal(t, "invalid-signature", provider.ReasonInvalidSignature.String())
	assert.Equal(t, "timestamp-expired", provider.ReasonTimestampExpired.String())
}
