package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateInstallationToken requests an installation access token,
// optionally restricted to specific repository ids and a permission
// map. A nil permissions map requests the App's full permission set.
func (c *Client) CreateInstallationToken(ctx context.Context, installationID int64, repositoryIDs []int64, permissions map[string]string) (*InstallationToken, error) {
	authorization, err := c.appAuthorization()
	if err != nil {
		return nil, fmt.Errorf("github: authenticating as app: %w", err)
	}

	path := fmt.Sprintf("/app/installations/%d/access_tokens", installationID)
	options := tokenOptions{
		RepositoryIDs: repositoryIDs,
		Permissions:   permissions,
	}

	var token InstallationToken
	if err := c.do(ctx, http.MethodPost, path, authorization, options, &token); err != nil {
		return nil, fmt.Errorf("creating installation token: %w", err)
	}
	return &token, nil
}

// GetRepository looks up a repository using an installation access
// token. The installation only sees repositories it covers, so a 404
// here means the repository is outside the installation's grant.
func (c *Client) GetRepository(ctx context.Context, installationToken, owner, repo string) (*Repository, error) {
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)

	var repository Repository
	if err := c.do(ctx, http.MethodGet, path, "Bearer "+installationToken, nil, &repository); err != nil {
		return nil, err
	}
	return &repository, nil
}

// MintRepositoryToken mints an installation access token scoped to
// exactly one repository and exactly the given permission map. This is
// the single least-privilege enforcement point: the minted token's
// scope is determined entirely by the arguments to this call.
//
// The repository id is resolved first with a metadata-only lookup
// token; a 404 there maps to RepositoryNotFoundError. Exactly one
// scoped mint attempt is made — upstream failures surface immediately
// rather than being retried.
//
// An empty permission map is refused before any API call. The token
// endpoint interprets a missing permissions field as the App's full
// permission set, the opposite of what an empty map means here.
func (c *Client) MintRepositoryToken(ctx context.Context, installation *Installation, owner, repo string, permissions map[string]string) (*MintedToken, error) {
	if len(permissions) == 0 {
		return nil, &MintFailedError{Detail: "refusing to mint a token with no permissions"}
	}

	// A short-lived metadata:read token for the repository id lookup.
	// The App JWT itself cannot read repository endpoints.
	lookup, err := c.CreateInstallationToken(ctx, installation.ID, nil, map[string]string{
		"metadata": "read",
	})
	if err != nil {
		return nil, fmt.Errorf("github: creating repository lookup token: %w", err)
	}

	repository, err := c.GetRepository(ctx, lookup.Token, owner, repo)
	if err != nil {
		if IsNotFound(err) {
			return nil, &RepositoryNotFoundError{Owner: owner, Repo: repo}
		}
		return nil, fmt.Errorf("github: resolving repository %s/%s: %w", owner, repo, err)
	}

	token, err := c.CreateInstallationToken(ctx, installation.ID, []int64{repository.ID}, permissions)
	if err != nil {
		return nil, fmt.Errorf("github: minting scoped token: %w", err)
	}
	if token.Token == "" {
		return nil, &MintFailedError{Detail: "token creation response contained no token"}
	}

	return &MintedToken{
		Token:          token.Token,
		ExpiresAt:      token.ExpiresAt,
		InstallationID: installation.ID,
	}, nil
}
