package provider_test

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hookguard/internal/provider"
	"github.com/mattjoyce/hookguard/internal/signer"
)

func TestDiscord_WrongKeyIsInvalid(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	dc, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: hex.EncodeToString(otherPub)})
	require.NoError(t, err)

	body := []byte(`{"type":1}`)
	h := signer.Discord(priv, body, signer.Unix(fixedNow))
	assert.Equal(t, provider.Fail(provider.ReasonInvalidSignature), dc.Verify(&provider.Delivery{RawBody: body, Header: h}))
}

func TestDiscord_MalformedSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dc, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: hex.EncodeToString(pub)})
	require.NoError(t, err)

	body := []byte(`{"type":1}`)
	ts := signer.Unix(fixedNow)
	good := signer.Discord(priv, body, ts).Get("X-Signature-Ed25519")

	for name, sig := range map[string]string{
		"not hex":   "zz" + good[2:],
		"too short": good[:126],
		"too long":  good + "00",
	} {
		t.Run(name, func(t *testing.T) {
			h := http.Header{}
			h.Set("X-Signature-Ed25519", sig)
			h.Set("X-Signature-Timestamp", ts)
			assert.Equal(t, provider.Fail(provider.ReasonInvalidSignature), dc.Verify(&provider.Delivery{RawBody: body, Header: h}))
		})
	}
}

func TestDiscord_Tolerance(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	key := hex.EncodeToString(pub)
	body := []byte(`{"type":1}`)
	h := signer.Discord(priv, body, unixAgo(time.Hour))

	unchecked, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: key, Now: clock})
	require.NoError(t, err)
	assert.True(t, unchecked.Verify(&provider.Delivery{RawBody: body, Header: h}).Valid, "zero tolerance skips the window")

	checked, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: key, Tolerance: time.Minute, Now: clock})
	require.NoError(t, err)
	assert.Equal(t, provider.Fail(provider.ReasonTimestampExpired), checked.Verify(&provider.Delivery{RawBody: body, Header: h}))

	_, err = provider.NewDiscord(provider.DiscordOptions{PublicKey: key, Tolerance: -time.Second})
	assert.ErrorIs(t, err, provider.ErrConfig)
}

func TestDiscord_ConcurrentVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dc, err := provider.NewDiscord(provider.DiscordOptions{PublicKey: hex.EncodeToString(pub)})
	require.NoError(t, err)

	body := []byte(`{"type":2}`)
	h := signer.Discord(priv, body, signer.Unix(fixedNow))
	d := &provider.Delivery{RawBody: body, Header: h}

	const workers = 32
	results := make([]provider.Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = dc.Verify(d)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, provider.OK(), r)
	}
}

func TestStandardWebhooks_ZeroKeySecret(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString(make([]byte, 32))
	sw, err := provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: secret, Now: clock})
	require.NoError(t, err)

	body := []byte(`{"type":"invoice.paid"}`)
	h, err := signer.StandardWebhooks(secret, "msg_2KWPBgLlAfxdpx2AI54pPJ85f4W", body, signer.Unix(fixedNow))
	require.NoError(t, err)
	assert.Equal(t, provider.OK(), sw.Verify(&provider.Delivery{RawBody: body, Header: h}))

	_, err = provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: "!!invalid!!"})
	assert.ErrorIs(t, err, provider.ErrConfig)
}

func TestStandardWebhooks_Tokens(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("rotation-key"))
	sw, err := provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: secret, Now: clock})
	require.NoError(t, err)

	body := []byte(`{}`)
	ts := signer.Unix(fixedNow)
	signed, err := signer.StandardWebhooks(secret, "msg_1", body, ts)
	require.NoError(t, err)
	good := signed.Get("webhook-signature")

	tests := []struct {
		name   string
		value  string
		reason provider.Reason
	}{
		{"rotated list", "v1,bm9wZQ== v1a,abc " + good, ""},
		{"unknown versions only", "v2,abc v1a,abc", provider.ReasonInvalidSignature},
		{"bad base64", "v1,***", provider.ReasonInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := signed.Clone()
			h.Set("webhook-signature", tt.value)
			res := sw.Verify(&provider.Delivery{RawBody: body, Header: h})
			if tt.reason == "" {
				assert.True(t, res.Valid)
				return
			}
			assert.Equal(t, provider.Fail(tt.reason), res)
		})
	}

	noID := signed.Clone()
	noID.Del("webhook-id")
	assert.Equal(t, provider.Fail(provider.ReasonMissingSignature), sw.Verify(&provider.Delivery{RawBody: body, Header: noID}))
}

func TestStandardWebhooks_UnprefixedSecret(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("plain"))
	sw, err := provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: encoded, Now: clock})
	require.NoError(t, err)

	body := []byte("x")
	h, err := signer.StandardWebhooks("whsec_"+encoded, "msg_1", body, signer.Unix(fixedNow))
	require.NoError(t, err)
	assert.True(t, sw.Verify(&provider.Delivery{RawBody: body, Header: h}).Valid)
}
