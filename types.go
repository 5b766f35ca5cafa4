// Package broker implements the token issuance pipeline: identity
// verification, installation discovery, policy-driven permission
// scoping, and installation token minting for CI callers.
package broker

import "time"

// Version is reported by the health endpoint
const Version = "1.0.0"

// TokenRequest is the optional JSON body of a token generation
// request. When Permissions is present it is validated against the
// policy ceiling and only the validated subset is minted; when absent
// the full ceiling is minted.
type TokenRequest struct {
	Permissions map[string]string `json:"permissions,omitempty"`
}

// TokenResponse is the success body of a token generation request
type TokenResponse struct {
	Success        bool              `json:"success"`
	Token          string            `json:"token"`
	ExpiresAt      time.Time         `json:"expires_at"`
	InstallationID int64             `json:"installation_id"`
	Permissions    map[string]string `json:"permissions,omitempty"`
}

// ErrorResponse is the body of every failed request: a human-readable
// error and a machine-readable code
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    Code   `json:"code"`
}

// HealthCheckResponse is the health endpoint body
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}
