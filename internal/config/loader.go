package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, verifies and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Read loads the configuration without validating it. A .checksums
// manifest beside the file, when present, must match.
func Read(configPath string) (*Config, error) {
	absPath, err := ResolvePath(configPath)
	if err != nil {
		return nil, err
	}
	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.SourcePath = absPath
	return cfg, nil
}

// ResolvePath returns the absolute config file path. A directory resolves
// to the config.yaml inside it.
func ResolvePath(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}
	return absPath, nil
}

// Parse decodes YAML, expands ${VAR} references and applies defaults.
// Unknown keys are rejected.
//
// Expansion runs on decoded string values, never on the YAML text, so a
// secret containing YAML syntax such as "#" or ": " is used verbatim.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	expandEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// expandEnv interpolates the fields that may reference the environment.
func expandEnv(cfg *Config) {
	cfg.Service.Listen = interpolateEnv(cfg.Service.Listen)
	cfg.Service.EventsToken = interpolateEnv(cfg.Service.EventsToken)

	expandSpec := func(spec *ProviderSpec) {
		spec.Secret = interpolateEnv(spec.Secret)
		spec.PublicKey = interpolateEnv(spec.PublicKey)
	}
	for i := range cfg.Endpoints {
		ep := &cfg.Endpoints[i]
		expandSpec(&ep.ProviderSpec)
		ep.PublicURL = interpolateEnv(ep.PublicURL)
		for j := range ep.Providers {
			expandSpec(&ep.Providers[j])
		}
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Unset variables are left in place so validation can name them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// UnresolvedEnvVars returns the names of ${VAR} placeholders left in s.
func UnresolvedEnvVars(s string) []string {
	var names []string
	for _, m := range envVarPattern.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = DefaultName
	}
	if cfg.Service.Listen == "" {
		cfg.Service.Listen = DefaultListen
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = DefaultLogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = DefaultLogFormat
	}
	if cfg.Service.EventsBuffer == 0 {
		cfg.Service.EventsBuffer = DefaultEventsBuffer
	}
}

// Validate checks the whole configuration, including that every endpoint's
// provider can be built. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Service.Listen == "" {
		fail("service.listen is required")
	}
	if c.Service.EventsBuffer < 0 {
		fail("service.events_buffer must not be negative")
	}
	switch strings.ToLower(c.Service.LogFormat) {
	case "json", "text":
	default:
		fail("service.log_format must be json or text, got %q", c.Service.LogFormat)
	}
	if vars := UnresolvedEnvVars(c.Service.EventsToken); len(vars) > 0 {
		fail("service.events_token references unset environment variable ${%s}", vars[0])
	}

	if len(c.Endpoints) == 0 {
		fail("at least one endpoint is required")
	}

	seen := make(map[string]int)
	for i, ep := range c.Endpoints {
		field := fmt.Sprintf("endpoints[%d]", i)
		if !strings.HasPrefix(ep.Path, "/") {
			fail("%s.path %q must start with /", field, ep.Path)
		}
		normalized := NormalizePath(ep.Path)
		if prev, dup := seen[normalized]; dup {
			fail("%s.path %q conflicts with endpoints[%d]", field, ep.Path, prev)
		}
		seen[normalized] = i

		if _, err := ParseSize(ep.MaxBodySize); err != nil {
			fail("%s.max_body_size %q: %v", field, ep.MaxBodySize, err)
		}
		if _, err := BuildEndpoint(ep); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	return errors.Join(errs...)
}

// NormalizePath drops a trailing slash so "/a" and "/a/" compare equal.
func NormalizePath(p string) string {
	if len(p) > 1 {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

// ParseSize parses size strings like "1MB", "64KB" or "2048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func ParseSize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	if strings.HasSuffix(upper, "KB") {
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	} else if strings.HasSuffix(upper, "MB") {
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	} else if strings.HasSuffix(upper, "GB") {
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
