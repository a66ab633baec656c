package server

import (
	"fmt"

	"github.com/mattjoyce/hookguard/internal/config"
	"github.com/mattjoyce/hookguard/internal/provider"
)

// Config holds HTTP server configuration with providers already built.
type Config struct {
	Listen      string
	EventsToken string
	Endpoints   []Endpoint
}

// Endpoint binds one path to a verifier.
type Endpoint struct {
	// Path is the URL path for this webhook (e.g., "/hooks/github")
	Path string

	Provider provider.Provider

	// MaxBodySize is the maximum allowed request body size in bytes
	MaxBodySize int64

	// PublicURL overrides the URL passed to the verifier.
	PublicURL string
}

// AcceptedResponse is the JSON body returned for verified deliveries.
type AcceptedResponse struct {
	DeliveryID string `json:"delivery_id"`
	Provider   string `json:"provider"`
}

// ErrorResponse is the JSON response for non-webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromConfig builds every endpoint's provider from cfg.
func FromConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	out := Config{
		Listen:      cfg.Service.Listen,
		EventsToken: cfg.Service.EventsToken,
		Endpoints:   make([]Endpoint, len(cfg.Endpoints)),
	}

	for i, ep := range cfg.Endpoints {
		p, err := config.BuildEndpoint(ep)
		if err != nil {
			return Config{}, fmt.Errorf("webhook endpoint %q: %w", ep.Path, err)
		}

		maxBodySize, err := config.ParseSize(ep.MaxBodySize)
		if err != nil {
			return Config{}, fmt.Errorf("webhook endpoint %q: invalid max_body_size %q: %w", ep.Path, ep.MaxBodySize, err)
		}

		out.Endpoints[i] = Endpoint{
			Path:        ep.Path,
			Provider:    p,
			MaxBodySize: maxBodySize,
			PublicURL:   ep.PublicURL,
		}
	}

	return out, nil
}
