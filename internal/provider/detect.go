package provider

import "net/http"

// NameAuto is the name of the provider returned by Auto.
const NameAuto = "auto"

// markers lists each provider's marker header in detection priority order.
var markers = []struct {
	name   string
	header string
}{
	{NameStripe, stripeSignatureHeader},
	{NameGitHub, githubSignatureHeader},
	{NameSlack, slackSignatureHeader},
	{NameShopify, shopifySignatureHeader},
	{NameTwilio, twilioSignatureHeader},
	{NameLine, lineSignatureHeader},
	{NameDiscord, discordSignatureHeader},
	{NameStandardWebhooks, standardWebhooksSignatureHeader},
}

// Detect returns the name of the first provider, in fixed priority order,
// whose marker header is present in h. A header counts as present even when
// its value is empty.
//
// Detection is a convenience; verification never depends on it.
func Detect(h http.Header) (string, bool) {
	for _, m := range markers {
		if _, ok := h[http.CanonicalHeaderKey(m.header)]; ok {
			return m.name, true
		}
	}
	return "", false
}

// AutoProvider picks a configured provider per delivery using Detect.
type AutoProvider struct {
	byName map[string]Provider
}

// Auto returns a Provider that detects the sender of each delivery and
// delegates to the matching provider in providers. Two providers with the
// same name are a configuration error.
func Auto(providers ...Provider) (*AutoProvider, error) {
	if len(providers) == 0 {
		return nil, configError(NameAuto, "at least one provider is required")
	}
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, configError(NameAuto, "nil provider")
		}
		if _, dup := byName[p.Name()]; dup {
			return nil, configError(NameAuto, "duplicate provider %q", p.Name())
		}
		byName[p.Name()] = p
	}
	return &AutoProvider{byName: byName}, nil
}

// Name returns "auto".
func (a *AutoProvider) Name() string { return NameAuto }

// Verify fails with missing-signature when no marker header is present or the
// detected sender has no configured provider.
func (a *AutoProvider) Verify(d *Delivery) Result {
	if d == nil {
		return Fail(ReasonMissingSignature)
	}
	name, ok := Detect(d.Header)
	if !ok {
		return Fail(ReasonMissingSignature)
	}
	p, ok := a.byName[name]
	if !ok {
		return Fail(ReasonMissingSignature)
	}
	return p.Verify(d)
}

// Resolve reports which configured provider would handle h.
func (a *AutoProvider) Resolve(h http.Header) (Provider, bool) {
	name, ok := Detect(h)
	if !ok {
		return nil, false
	}
	p, ok := a.byName[name]
	return p, ok
}
