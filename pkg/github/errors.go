package github

import (
	"errors"
	"fmt"
)

// APIError represents a non-2xx response from the GitHub REST API
type APIError struct {
	// StatusCode is the HTTP response status code
	StatusCode int

	// Message is the top-level error description from GitHub
	Message string

	// DocumentationURL points to the relevant API documentation
	DocumentationURL string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("github: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a GitHub API 404 Not Found response
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// InstallationNotFoundError reports that the App has no installation
// whose account matches the requested owner. Not retryable: the App
// must be installed for the owner before tokens can be issued.
type InstallationNotFoundError struct {
	Owner string
}

func (e *InstallationNotFoundError) Error() string {
	return fmt.Sprintf("github: app is not installed for owner %q", e.Owner)
}

// RepositoryNotFoundError reports that the installation's credentials
// cannot see the target repository. Distinct from
// InstallationNotFoundError: the App is installed for the owner, but
// the installation does not cover this repository.
type RepositoryNotFoundError struct {
	Owner string
	Repo  string
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("github: repository %s/%s is not covered by the installation", e.Owner, e.Repo)
}

// MintFailedError reports a token creation response that succeeded at
// the HTTP level but violated the API contract (no token in the body)
type MintFailedError struct {
	Detail string
}

func (e *MintFailedError) Error() string {
	return fmt.Sprintf("github: token mint failed: %s", e.Detail)
}
