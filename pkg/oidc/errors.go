package oidc

import "fmt"

// MalformedTokenError reports a bearer token that is not structurally a
// compact JWT (wrong segment count, undecodable envelope). Distinct
// from UntrustedTokenError: a malformed token never reached signature
// verification.
type MalformedTokenError struct {
	Detail string
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("oidc: malformed identity token: %s", e.Detail)
}

// UntrustedTokenError reports a structurally valid token that failed
// signature, issuer, audience, or expiry verification. Never retryable:
// re-verifying the same token cannot make it trusted.
type UntrustedTokenError struct {
	Err error
}

func (e *UntrustedTokenError) Error() string {
	return fmt.Sprintf("oidc: identity token rejected: %v", e.Err)
}

func (e *UntrustedTokenError) Unwrap() error {
	return e.Err
}

// IncompleteClaimsError reports an otherwise valid token that is
// missing a claim the broker requires (repository, repository_owner)
type IncompleteClaimsError struct {
	Claim string
}

func (e *IncompleteClaimsError) Error() string {
	return fmt.Sprintf("oidc: identity token is missing the %s claim", e.Claim)
}
