package provider

import "github.com/mattjoyce/hookguard/internal/crypto"

const shopifySignatureHeader = "X-Shopify-Hmac-Sha256"

// ShopifyOptions configures a Shopify verifier.
type ShopifyOptions struct {
	Secret string
}

// Shopify verifies base64 HMAC-SHA256 signatures over the raw body.
type Shopify struct {
	secret []byte
}

// NewShopify validates opts and returns a Shopify verifier.
func NewShopify(opts ShopifyOptions) (*Shopify, error) {
	if opts.Secret == "" {
		return nil, configError(NameShopify, "secret must not be empty")
	}
	return &Shopify{secret: []byte(opts.Secret)}, nil
}

// Name returns "shopify".
func (s *Shopify) Name() string { return NameShopify }

// Verify compares in the byte domain after decoding the received value.
func (s *Shopify) Verify(d *Delivery) Result {
	value := headerValue(d, shopifySignatureHeader)
	if value == "" {
		return Fail(ReasonMissingSignature)
	}
	return verifyBase64HMAC(crypto.SHA256, s.secret, rawBody(d), value)
}

// verifyBase64HMAC is shared by the providers that sign the raw body and send
// a bare base64 digest.
func verifyBase64HMAC(alg crypto.Algorithm, key, message []byte, encoded string) Result {
	received, ok := crypto.DecodeBase64(encoded)
	if !ok || !crypto.Equal(crypto.Sum(alg, key, message), received) {
		return Fail(ReasonInvalidSignature)
	}
	return OK()
}
