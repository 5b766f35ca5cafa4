package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultIssuer is the token issuer for workflows on github.com.
// GitHub Enterprise Server installations publish their own issuer under
// https://HOSTNAME/_services/token.
const DefaultIssuer = "https://token.actions.githubusercontent.com"

// DefaultJWKSURL is the published key set for DefaultIssuer
const DefaultJWKSURL = DefaultIssuer + "/.well-known/jwks"

// clockSkew is the tolerance applied to expiry and issued-at checks
const clockSkew = 60 * time.Second

// jwksMinRefresh rate-limits background refreshes of the remote key
// set. Individual cache misses (unknown kid) still trigger a refresh.
const jwksMinRefresh = 15 * time.Minute

// jwksFetchTimeout bounds each key set fetch. The cache would
// otherwise use http.DefaultClient, which never times out.
const jwksFetchTimeout = 30 * time.Second

// Verifier validates identity tokens against a remote published key
// set. The key set is cached locally, keyed by key identifier, and
// refreshed on cache miss. A Verifier is safe for concurrent use.
type Verifier struct {
	issuer string
	keySet jwk.Set
}

// NewVerifier creates a Verifier trusting the given issuer and key set
// URL. The key set is fetched lazily on first use; ctx bounds the
// lifetime of the background cache, so it should be the process
// context, not a request context.
func NewVerifier(ctx context.Context, issuer, jwksURL string) (*Verifier, error) {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL
	}

	cache := jwk.NewCache(ctx)
	err := cache.Register(jwksURL,
		jwk.WithMinRefreshInterval(jwksMinRefresh),
		jwk.WithHTTPClient(&http.Client{Timeout: jwksFetchTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("oidc: registering JWKS endpoint %s: %w", jwksURL, err)
	}

	return &Verifier{
		issuer: issuer,
		keySet: jwk.NewCachedSet(cache, jwksURL),
	}, nil
}

// Verify validates a bearer identity token and returns its verified
// claims.
//
// The token may arrive wrapped in a JSON envelope ({"value": "..."})
// or surrounded by quotes and whitespace; both are normalized before
// structural validation. Verification checks, in order: compact JWT
// structure, signature against the cached key set (resolved by the kid
// in the token header), issuer, audience (exact match against
// expectedAudience), and expiry with 60 seconds of clock skew
// tolerance.
func (v *Verifier) Verify(ctx context.Context, bearerToken, expectedAudience string) (*IdentityClaims, error) {
	compact, err := normalizeToken(bearerToken)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(compact),
		jwt.WithContext(ctx),
		jwt.WithKeySet(v.keySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(expectedAudience),
		jwt.WithAcceptableSkew(clockSkew),
	)
	if err != nil {
		return nil, &UntrustedTokenError{Err: err}
	}

	repository, err := stringClaim(token, "repository")
	if err != nil {
		return nil, err
	}
	owner, err := stringClaim(token, "repository_owner")
	if err != nil {
		return nil, err
	}

	// The repository claim is "owner/name"; keep the bare name
	// alongside the full form.
	name := repository
	if idx := strings.IndexByte(repository, '/'); idx >= 0 {
		name = repository[idx+1:]
	}

	return &IdentityClaims{
		RepositoryOwner: owner,
		RepositoryName:  name,
		Repository:      repository,
		Issuer:          token.Issuer(),
		Audience:        expectedAudience,
		ExpiresAt:       token.Expiration(),
	}, nil
}

// normalizeToken unwraps and validates the structural form of a bearer
// token: JSON envelope first, then quote and whitespace stripping, then
// the three-segment compact JWT check
func normalizeToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", &MalformedTokenError{Detail: "empty token"}
	}

	if strings.HasPrefix(token, "{") {
		var envelope struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(token), &envelope); err != nil {
			return "", &MalformedTokenError{Detail: "undecodable JSON envelope"}
		}
		if envelope.Value == "" {
			return "", &MalformedTokenError{Detail: "JSON envelope has no value field"}
		}
		token = envelope.Value
	}

	token = strings.TrimSpace(strings.Trim(token, `"'`))

	if segments := strings.Count(token, "."); segments != 2 {
		return "", &MalformedTokenError{
			Detail: fmt.Sprintf("expected 3 token segments, found %d", segments+1),
		}
	}
	return token, nil
}

// stringClaim extracts a required non-empty string claim
func stringClaim(token jwt.Token, name string) (string, error) {
	value, ok := token.Get(name)
	if !ok {
		return "", &IncompleteClaimsError{Claim: name}
	}
	text, ok := value.(string)
	if !ok || text == "" {
		return "", &IncompleteClaimsError{Claim: name}
	}
	return text, nil
}
