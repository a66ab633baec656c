package config

import (
	"fmt"
	"sort"

	"github.com/mattjoyce/hookguard/internal/provider"
)

// builders constructs a verifier for each built-in provider name.
var builders = map[string]func(ProviderSpec) (provider.Provider, error){
	provider.NameStripe: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewStripe(provider.StripeOptions{Secret: s.Secret, Tolerance: s.Tolerance})
	},
	provider.NameGitHub: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewGitHub(provider.GitHubOptions{Secret: s.Secret})
	},
	provider.NameSlack: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewSlack(provider.SlackOptions{SigningSecret: s.Secret, Tolerance: s.Tolerance})
	},
	provider.NameShopify: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewShopify(provider.ShopifyOptions{Secret: s.Secret})
	},
	provider.NameTwilio: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewTwilio(provider.TwilioOptions{AuthToken: s.Secret})
	},
	provider.NameLine: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewLine(provider.LineOptions{ChannelSecret: s.Secret})
	},
	provider.NameDiscord: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewDiscord(provider.DiscordOptions{PublicKey: s.PublicKey, Tolerance: s.Tolerance})
	},
	provider.NameStandardWebhooks: func(s ProviderSpec) (provider.Provider, error) {
		return provider.NewStandardWebhooks(provider.StandardWebhooksOptions{Secret: s.Secret, Tolerance: s.Tolerance})
	},
}

// ProviderNames lists the built-in provider names, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildProvider constructs the verifier named by spec. Key material that
// still contains a ${VAR} placeholder is rejected rather than used literally.
func BuildProvider(spec ProviderSpec) (provider.Provider, error) {
	build, ok := builders[spec.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalid, spec.Provider)
	}
	for field, value := range map[string]string{"secret": spec.Secret, "public_key": spec.PublicKey} {
		if vars := UnresolvedEnvVars(value); len(vars) > 0 {
			return nil, fmt.Errorf("%w: %s: %s references unset environment variable ${%s}",
				ErrInvalid, spec.Provider, field, vars[0])
		}
	}
	return build(spec)
}

// BuildEndpoint constructs the verifier for ep, combining ep.Providers when
// ep.Provider is "auto".
func BuildEndpoint(ep EndpointConfig) (provider.Provider, error) {
	if ep.Provider != provider.NameAuto {
		if len(ep.Providers) > 0 {
			return nil, fmt.Errorf("%w: providers is only allowed with provider: auto", ErrInvalid)
		}
		return BuildProvider(ep.ProviderSpec)
	}

	if len(ep.Providers) == 0 {
		return nil, fmt.Errorf("%w: provider: auto requires a providers list", ErrInvalid)
	}
	built := make([]provider.Provider, 0, len(ep.Providers))
	for i, spec := range ep.Providers {
		if spec.Provider == provider.NameAuto {
			return nil, fmt.Errorf("%w: providers[%d]: auto cannot be nested", ErrInvalid, i)
		}
		p, err := BuildProvider(spec)
		if err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		built = append(built, p)
	}
	return provider.Auto(built...)
}
