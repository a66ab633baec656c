package config

import "time"

// Config represents the complete hookguard configuration.
type Config struct {
	Service   ServiceConfig    `yaml:"service"`
	Endpoints []EndpointConfig `yaml:"endpoints"`

	// SourcePath is the absolute path the config was read from.
	SourcePath string `yaml:"-"`
}

// ServiceConfig contains process-level settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// EventsBuffer is the number of recent outcomes kept for /events.
	EventsBuffer int `yaml:"events_buffer"`

	// EventsToken guards /events with a bearer token when set.
	EventsToken string `yaml:"events_token,omitempty"`
}

// ProviderSpec selects and keys one provider verifier.
type ProviderSpec struct {
	Provider string `yaml:"provider"`

	// Secret is the shared HMAC secret (stripe, github, slack, shopify,
	// twilio, line, standard-webhooks).
	Secret string `yaml:"secret,omitempty"`

	// PublicKey is the hex Ed25519 key (discord).
	PublicKey string `yaml:"public_key,omitempty"`

	// Tolerance bounds signed timestamps, e.g. "5m". Zero keeps the
	// provider default.
	Tolerance time.Duration `yaml:"tolerance,omitempty"`
}

// EndpointConfig defines a single webhook endpoint.
type EndpointConfig struct {
	// Path is the URL path for this webhook (e.g., "/hooks/github")
	Path string `yaml:"path"`

	ProviderSpec `yaml:",inline"`

	// MaxBodySize limits the buffered body, e.g. "1MB" or "65536" (default: 1MB)
	MaxBodySize string `yaml:"max_body_size,omitempty"`

	// PublicURL is the externally visible URL the sender signs. Twilio
	// endpoints behind a proxy need it.
	PublicURL string `yaml:"public_url,omitempty"`

	// Providers lists the candidates for provider: auto.
	Providers []ProviderSpec `yaml:"providers,omitempty"`
}

// ChecksumManifest is the .checksums file written by Lock.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults
const (
	DefaultName         = "hookguard"
	DefaultListen       = "127.0.0.1:8081"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
	DefaultEventsBuffer = 256
	DefaultMaxBodySize  = 1048576 // 1 MB

	checksumsFile = ".checksums"
)
