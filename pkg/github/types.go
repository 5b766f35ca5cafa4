// Package github is a minimal authenticated client for the GitHub App
// REST surface the broker uses: installation listing, repository
// lookup, and installation access token creation
package github

import "time"

// Account is the owner of an installation or repository
type Account struct {
	Login string `json:"login"`
	Type  string `json:"type,omitempty"`
}

// Installation is one account's authorization of the GitHub App.
// Installations are looked up live per request and never cached:
// a stale installation would be a security bug.
type Installation struct {
	ID      int64   `json:"id"`
	Account Account `json:"account"`
}

// Repository is the subset of GitHub's repository object the broker
// needs: the numeric id used to scope minted tokens
type Repository struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	FullName string  `json:"full_name"`
	Owner    Account `json:"owner"`
}

// InstallationToken is GitHub's response to an access token request
type InstallationToken struct {
	Token               string            `json:"token"`
	ExpiresAt           time.Time         `json:"expires_at"`
	Permissions         map[string]string `json:"permissions,omitempty"`
	RepositorySelection string            `json:"repository_selection,omitempty"`
}

// tokenOptions is the request body for an access token creation.
// Providing repository ids and a permission map restricts the token to
// exactly those repositories and permissions.
type tokenOptions struct {
	RepositoryIDs []int64           `json:"repository_ids,omitempty"`
	Permissions   map[string]string `json:"permissions,omitempty"`
}

// MintedToken is the broker's result of a successful mint: the secret
// token, its expiry, and the installation it was minted under. The
// token value must never be logged; the broker retains no copy after
// the response is written.
type MintedToken struct {
	Token          string
	ExpiresAt      time.Time
	InstallationID int64
}
