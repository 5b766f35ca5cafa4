// Package oidc verifies federated identity tokens presented by CI jobs
// and extracts the repository identity they assert
package oidc

import "time"

// IdentityClaims is the verified result of identity token validation.
// Instances are produced once per request, never persisted, and carry
// no secret material.
type IdentityClaims struct {
	// RepositoryOwner is the owner (organization or user) asserted by
	// the token's repository_owner claim
	RepositoryOwner string

	// RepositoryName is the repository name without the owner prefix
	RepositoryName string

	// Repository is the full "owner/name" form from the repository claim
	Repository string

	// Issuer is the token issuer, always the configured trusted issuer
	// after successful verification
	Issuer string

	// Audience is the audience the token was verified against
	Audience string

	// ExpiresAt is the token's expiry
	ExpiresAt time.Time
}
