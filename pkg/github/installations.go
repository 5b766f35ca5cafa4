package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// installationsPageSize is GitHub's maximum page size for the
// installation listing endpoint
const installationsPageSize = 100

// ListInstallations enumerates every installation of the App,
// following pagination until the listing is exhausted
func (c *Client) ListInstallations(ctx context.Context) ([]Installation, error) {
	authorization, err := c.appAuthorization()
	if err != nil {
		return nil, fmt.Errorf("github: authenticating as app: %w", err)
	}

	var installations []Installation
	for page := 1; ; page++ {
		path := fmt.Sprintf("/app/installations?per_page=%d&page=%d", installationsPageSize, page)

		var batch []Installation
		if err := c.do(ctx, http.MethodGet, path, authorization, nil, &batch); err != nil {
			return nil, fmt.Errorf("listing app installations: %w", err)
		}
		installations = append(installations, batch...)

		if len(batch) < installationsPageSize {
			return installations, nil
		}
	}
}

// FindInstallation returns the App installation whose account login
// matches owner, case-insensitively. Installations are always read
// fresh; nothing is cached between requests.
func (c *Client) FindInstallation(ctx context.Context, owner string) (*Installation, error) {
	installations, err := c.ListInstallations(ctx)
	if err != nil {
		return nil, err
	}

	for i := range installations {
		if strings.EqualFold(installations[i].Account.Login, owner) {
			return &installations[i], nil
		}
	}
	return nil, &InstallationNotFoundError{Owner: owner}
}
