package main

import (
	"crypto/ed25519"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/mattjoyce/hookguard/internal/config"
	"github.com/mattjoyce/hookguard/internal/crypto"
	"github.com/mattjoyce/hookguard/internal/doctor"
	"github.com/mattjoyce/hookguard/internal/provider"
	"github.com/mattjoyce/hookguard/internal/signer"
)

// headerFlags collects repeated -H "Name: value" flags.
type headerFlags http.Header

func (h headerFlags) String() string {
	var parts []string
	for k, vs := range h {
		for _, v := range vs {
			parts = append(parts, k+": "+v)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func (h headerFlags) Set(raw string) error {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("header %q must be in Name: value form", raw)
	}
	http.Header(h).Add(name, strings.TrimSpace(value))
	return nil
}

// readBody reads path, or stdin for "-".
func readBody(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printVerifyHelp() {
	fmt.Println("Usage: hookguard verify --provider NAME [--secret S | --public-key HEX] --body FILE [-H 'Name: value']... [--url URL] [--tolerance 5m] [--json]")
	fmt.Println("Verify a captured delivery. --provider auto detects the sender from the headers.")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  Signature valid")
	fmt.Println("  1  Usage or configuration error")
	fmt.Println("  2  Delivery rejected")
}

func printSignHelp() {
	fmt.Println("Usage: hookguard sign --provider NAME [--secret S | --private-key HEX] --body FILE [--timestamp UNIX] [--url URL] [--message-id ID] [--json]")
	fmt.Println("Print the headers a sender would attach to the body.")
}

func printDetectHelp() {
	fmt.Println("Usage: hookguard detect -H 'Name: value' [-H ...]")
	fmt.Println("Print the provider whose marker header is present. Exits 1 when none is.")
}

type verifyOutput struct {
	Provider string          `json:"provider"`
	Valid    bool            `json:"valid"`
	Reason   provider.Reason `json:"reason,omitempty"`
}

func runVerify(args []string) int {
	header := headerFlags{}
	var spec config.ProviderSpec
	var bodyPath, url string
	var jsonOut bool

	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.StringVar(&spec.Provider, "provider", "", "Provider name or auto")
	fs.StringVar(&spec.Secret, "secret", "", "Shared signing secret")
	fs.StringVar(&spec.PublicKey, "public-key", "", "Hex Ed25519 public key (discord)")
	fs.DurationVar(&spec.Tolerance, "tolerance", 0, "Timestamp tolerance (default: provider default)")
	fs.StringVar(&bodyPath, "body", "", "File holding the raw body, - for stdin")
	fs.StringVar(&url, "url", "", "Public URL the sender signed (twilio)")
	fs.Var(header, "H", "Request header, Name: value (repeatable)")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if spec.Provider == "" || bodyPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: hookguard verify --provider NAME --body FILE [-H 'Name: value']...")
		return 1
	}

	if spec.Provider == provider.NameAuto {
		detected, ok := provider.Detect(http.Header(header))
		if !ok {
			fmt.Fprintln(os.Stderr, "No provider marker header present")
			return 1
		}
		spec.Provider = detected
	}

	p, err := config.BuildProvider(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Provider error: %v\n", err)
		return 1
	}

	body, err := readBody(bodyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}

	res := p.Verify(&provider.Delivery{RawBody: body, Header: http.Header(header), URL: url})
	out := verifyOutput{Provider: p.Name(), Valid: res.Valid, Reason: res.Reason}

	if jsonOut {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else if res.Valid {
		fmt.Printf("%s: ✓ signature valid\n", out.Provider)
	} else {
		fmt.Printf("%s: ✗ rejected (%s)\n", out.Provider, out.Reason)
	}

	if !res.Valid {
		return 2
	}
	return 0
}

// parsePrivateKey accepts a hex Ed25519 seed or full private key.
func parsePrivateKey(raw string) (ed25519.PrivateKey, error) {
	b, ok := crypto.DecodeHex(strings.TrimSpace(raw))
	if !ok {
		return nil, fmt.Errorf("private key is not valid hex")
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(b))
	}
}

func runSign(args []string) int {
	var name, privateKey, bodyPath string
	var in signer.Input
	var jsonOut bool

	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.StringVar(&name, "provider", "", "Provider name")
	fs.StringVar(&in.Secret, "secret", "", "Shared signing secret")
	fs.StringVar(&privateKey, "private-key", "", "Hex Ed25519 seed or private key (discord)")
	fs.StringVar(&bodyPath, "body", "", "File holding the raw body, - for stdin")
	fs.StringVar(&in.Timestamp, "timestamp", "", "Unix timestamp to sign (default: now)")
	fs.StringVar(&in.URL, "url", "", "Public URL to sign (twilio)")
	fs.StringVar(&in.MessageID, "message-id", "", "Message id (standard-webhooks, default: generated)")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if name == "" || bodyPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: hookguard sign --provider NAME --body FILE [--secret S]")
		return 1
	}

	if privateKey != "" {
		key, err := parsePrivateKey(privateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Key error: %v\n", err)
			return 1
		}
		in.PrivateKey = key
	}

	body, err := readBody(bodyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}
	in.Body = body

	h, err := signer.Sign(name, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sign error: %v\n", err)
		return 1
	}

	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if jsonOut {
		flat := make(map[string]string, len(h))
		for _, k := range keys {
			flat[k] = h.Get(k)
		}
		data, err := json.MarshalIndent(flat, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	for _, k := range keys {
		fmt.Printf("%s: %s\n", k, h.Get(k))
	}
	return 0
}

func runDetect(args []string) int {
	header := headerFlags{}
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.Var(header, "H", "Request header, Name: value (repeatable)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	name, ok := provider.Detect(http.Header(header))
	if !ok {
		fmt.Fprintln(os.Stderr, "No provider marker header present")
		return 1
	}
	fmt.Println(name)
	return 0
}

func runConfigCheck(args []string) int {
	var configPath, envFile string
	var strict, jsonOut bool
	var format string

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration")
	fs.StringVar(&envFile, "env-file", "", "Path to dotenv file with secrets")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.StringVar(&format, "format", "human", "Output format (human, json)")
	// Handle -json alias for format=json
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if jsonOut {
		format = "json"
	}

	if err := loadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	// Read skips validation so every problem is reported by the doctor.
	cfg, err := config.Read(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	switch format {
	case "json":
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	default:
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigLock(args []string) int {
	var configPath string
	var verbose, verboseShort bool

	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration")
	fs.BoolVar(&verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&verboseShort, "v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	report, err := config.Lock(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}

	if verbose || verboseShort {
		fmt.Printf("  HASH %s: %s\n", report.ConfigPath, report.Hash)
		fmt.Printf("  WROTE .checksums: %s\n", report.ChecksumPath)
	}
	fmt.Printf("Successfully locked configuration: %s\n", report.ConfigPath)
	return 0
}
