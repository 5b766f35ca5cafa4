package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/OpsMx/github-token-broker/pkg/github"
	"github.com/OpsMx/github-token-broker/pkg/oidc"
	"github.com/OpsMx/github-token-broker/pkg/policy"
)

// IdentityVerifier validates a bearer identity token and returns its
// verified claims. Implemented by oidc.Verifier.
type IdentityVerifier interface {
	Verify(ctx context.Context, bearerToken, expectedAudience string) (*oidc.IdentityClaims, error)
}

// InstallationAPI locates App installations and mints scoped
// installation tokens. Implemented by github.Client.
type InstallationAPI interface {
	FindInstallation(ctx context.Context, owner string) (*github.Installation, error)
	MintRepositoryToken(ctx context.Context, installation *github.Installation, owner, repo string, permissions map[string]string) (*github.MintedToken, error)
}

// IssuedToken is the result of a successful issuance: the minted
// secret, its expiry, the installation it was minted under, and the
// granted permission map
type IssuedToken struct {
	Token          string
	ExpiresAt      time.Time
	InstallationID int64
	Permissions    map[string]string
}

// Broker sequences the issuance pipeline. Each request runs
// verification, installation lookup, permission resolution, and
// minting in order; any failure rejects the request immediately with
// no cross-stage retry. The only state shared across requests is the
// memoized policy and the verifier's key cache, both read-only after
// first load.
type Broker struct {
	verifier IdentityVerifier
	policies *policy.Loader
	github   InstallationAPI
	audience string
	logger   *slog.Logger
}

// New creates a Broker. audience is the expected audience of incoming
// identity tokens; a nil logger falls back to slog.Default().
func New(verifier IdentityVerifier, policies *policy.Loader, api InstallationAPI, audience string, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		verifier: verifier,
		policies: policies,
		github:   api,
		audience: audience,
		logger:   logger,
	}
}

// GenerateToken runs the full issuance pipeline for one bearer token.
// requested is the caller's optional permission subset; nil mints the
// full policy ceiling.
//
// A single mint attempt is made per request. Upstream transient
// failures surface immediately: retrying a partially applied
// privileged grant is riskier than failing closed.
func (b *Broker) GenerateToken(ctx context.Context, bearerToken string, requested map[string]string) (*IssuedToken, error) {
	claims, err := b.verifier.Verify(ctx, bearerToken, b.audience)
	if err != nil {
		return nil, err
	}

	installation, err := b.github.FindInstallation(ctx, claims.RepositoryOwner)
	if err != nil {
		return nil, err
	}

	pol, err := b.policies.Load()
	if err != nil {
		return nil, err
	}
	granted, err := pol.EffectivePermissions(claims.RepositoryOwner, claims.RepositoryName, requested)
	if err != nil {
		return nil, err
	}

	permissions := granted.Wire()
	minted, err := b.github.MintRepositoryToken(ctx, installation, claims.RepositoryOwner, claims.RepositoryName, permissions)
	if err != nil {
		return nil, err
	}

	// Log the grant without the token value.
	b.logger.Info("token issued",
		"repository", claims.Repository,
		"installation_id", minted.InstallationID,
		"permissions", granted.String(),
	)

	return &IssuedToken{
		Token:          minted.Token,
		ExpiresAt:      minted.ExpiresAt,
		InstallationID: minted.InstallationID,
		Permissions:    permissions,
	}, nil
}
