// Package config loads the broker's process configuration from
// environment variables
package config

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Config is the broker's process-lifetime configuration
type Config struct {
	// ListenAddr is the HTTP listen address
	ListenAddr string

	// AppID is the GitHub App identifier used as the App JWT issuer
	AppID string

	// PrivateKey is the App's RSA signing key
	PrivateKey *rsa.PrivateKey

	// Audience is the audience expected in incoming identity tokens
	Audience string

	// PolicyFile is the path to the permission policy document
	PolicyFile string

	// GitHubAPIURL overrides the GitHub REST endpoint (empty for
	// github.com)
	GitHubAPIURL string

	// Issuer and JWKSURL override the trusted identity token issuer
	// and its published key set (empty for github.com defaults)
	Issuer  string
	JWKSURL string
}

// Load reads configuration from the environment. Missing required
// variables are reported by name.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:   envOrDefault("LISTEN_ADDR", ":8080"),
		AppID:        os.Getenv("GITHUB_APP_ID"),
		Audience:     os.Getenv("TOKEN_AUDIENCE"),
		PolicyFile:   os.Getenv("POLICY_FILE"),
		GitHubAPIURL: os.Getenv("GITHUB_API_URL"),
		Issuer:       os.Getenv("OIDC_ISSUER"),
		JWKSURL:      os.Getenv("OIDC_JWKS_URL"),
	}

	if cfg.AppID == "" {
		return nil, fmt.Errorf("GITHUB_APP_ID environment variable is required")
	}
	if cfg.Audience == "" {
		return nil, fmt.Errorf("TOKEN_AUDIENCE environment variable is required")
	}
	if cfg.PolicyFile == "" {
		return nil, fmt.Errorf("POLICY_FILE environment variable is required")
	}

	rawKey := os.Getenv("GITHUB_APP_PRIVATE_KEY")
	if rawKey == "" {
		return nil, fmt.Errorf("GITHUB_APP_PRIVATE_KEY environment variable is required")
	}
	key, err := ParsePrivateKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GITHUB_APP_PRIVATE_KEY: %w", err)
	}
	cfg.PrivateKey = key

	return cfg, nil
}

// ParsePrivateKey normalizes the App private key into standard PEM and
// parses it. Accepted input encodings: raw PEM, base64-encoded PEM,
// and PEM with literal "\n" escapes (common when keys pass through
// JSON or shell quoting).
func ParsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	text := strings.TrimSpace(raw)

	if !strings.Contains(text, "-----BEGIN") {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("key is neither PEM nor base64-encoded PEM")
		}
		text = strings.TrimSpace(string(decoded))
	}

	text = strings.ReplaceAll(text, `\n`, "\n")

	parsed, _, err := jwk.DecodePEM([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("decoding PEM key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is %T, want *rsa.PrivateKey", parsed)
	}
	return key, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
