// Package doctor validates hookguard configuration before it is served.
package doctor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mattjoyce/hookguard/internal/config"
	"github.com/mattjoyce/hookguard/internal/provider"
)

// LongTolerance is the replay window above which a warning is raised.
const LongTolerance = time.Hour

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a configuration read with config.Read.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor for cfg.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServiceConfig(r)
	d.validateEndpoints(r)
	d.warnMissingEnvVars(r)
	d.warnLongTolerance(r)
	d.warnTwilioWithoutPublicURL(r)
	d.warnUnprotectedEvents(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateServiceConfig checks required service fields.
func (d *Doctor) validateServiceConfig(r *Result) {
	if d.cfg.Service.Listen == "" {
		d.addError(r, "service", "service.listen", "listen address is required")
	}
	switch strings.ToLower(d.cfg.Service.LogFormat) {
	case "json", "text":
	default:
		d.addError(r, "service", "service.log_format",
			fmt.Sprintf("unknown log format %q (expected json or text)", d.cfg.Service.LogFormat))
	}
	if d.cfg.Service.EventsBuffer < 0 {
		d.addError(r, "service", "service.events_buffer", "events_buffer must not be negative")
	}
}

// validateEndpoints checks paths and that each provider can be built.
func (d *Doctor) validateEndpoints(r *Result) {
	if len(d.cfg.Endpoints) == 0 {
		d.addError(r, "endpoints", "endpoints", "no endpoints configured")
		return
	}

	known := make(map[string]bool)
	for _, name := range config.ProviderNames() {
		known[name] = true
	}

	seen := make(map[string]int)
	for i, ep := range d.cfg.Endpoints {
		field := fmt.Sprintf("endpoints[%d]", i)

		if !strings.HasPrefix(ep.Path, "/") {
			d.addError(r, "endpoints", field+".path",
				fmt.Sprintf("path %q must start with /", ep.Path))
		}
		normalized := config.NormalizePath(ep.Path)
		if prevIdx, exists := seen[normalized]; exists {
			d.addError(r, "endpoints", field+".path",
				fmt.Sprintf("path %q conflicts with endpoints[%d]", ep.Path, prevIdx))
		}
		seen[normalized] = i

		if _, err := config.ParseSize(ep.MaxBodySize); err != nil {
			d.addError(r, "endpoints", field+".max_body_size",
				fmt.Sprintf("invalid max_body_size %q: %v", ep.MaxBodySize, err))
		}

		if ep.Provider != provider.NameAuto && !known[ep.Provider] {
			d.addError(r, "providers", field+".provider",
				fmt.Sprintf("unknown provider %q (known: %s, auto)", ep.Provider, strings.Join(config.ProviderNames(), ", ")))
			continue
		}
		if _, err := config.BuildEndpoint(ep); err != nil {
			d.addError(r, "providers", field, err.Error())
		}
	}
}

// warnMissingEnvVars warns about ${VAR} references where VAR is not set.
func (d *Doctor) warnMissingEnvVars(r *Result) {
	check := func(field, value string) {
		for _, name := range config.UnresolvedEnvVars(value) {
			d.addWarning(r, "env_vars", field, fmt.Sprintf("environment variable ${%s} not set", name))
		}
	}

	check("service.events_token", d.cfg.Service.EventsToken)
	for i, ep := range d.cfg.Endpoints {
		field := fmt.Sprintf("endpoints[%d]", i)
		check(field+".secret", ep.Secret)
		check(field+".public_key", ep.PublicKey)
		for j, spec := range ep.Providers {
			nested := fmt.Sprintf("%s.providers[%d]", field, j)
			check(nested+".secret", spec.Secret)
			check(nested+".public_key", spec.PublicKey)
		}
	}
}

// warnLongTolerance flags replay windows wider than LongTolerance.
func (d *Doctor) warnLongTolerance(r *Result) {
	for i, ep := range d.cfg.Endpoints {
		specs := append([]config.ProviderSpec{ep.ProviderSpec}, ep.Providers...)
		for _, spec := range specs {
			if spec.Tolerance > LongTolerance {
				d.addWarning(r, "tolerance", fmt.Sprintf("endpoints[%d].tolerance", i),
					fmt.Sprintf("%s tolerance %s is longer than %s and widens the replay window", spec.Provider, spec.Tolerance, LongTolerance))
			}
		}
	}
}

// warnTwilioWithoutPublicURL flags Twilio endpoints that rely on the URL
// reconstructed from the request, which breaks behind rewriting proxies.
func (d *Doctor) warnTwilioWithoutPublicURL(r *Result) {
	for i, ep := range d.cfg.Endpoints {
		if ep.PublicURL != "" {
			continue
		}
		usesTwilio := ep.Provider == provider.NameTwilio
		for _, spec := range ep.Providers {
			usesTwilio = usesTwilio || spec.Provider == provider.NameTwilio
		}
		if usesTwilio {
			d.addWarning(r, "twilio", fmt.Sprintf("endpoints[%d].public_url", i),
				fmt.Sprintf("endpoint %q verifies Twilio but has no public_url; the signed URL is rebuilt from the request", ep.Path))
		}
	}
}

// warnUnprotectedEvents warns when /events is served without a token.
func (d *Doctor) warnUnprotectedEvents(r *Result) {
	if d.cfg.Service.EventsToken == "" {
		d.addWarning(r, "events", "service.events_token",
			"events endpoint is not protected; set events_token to require a bearer token")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
