package github

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// appJWTExpiry is the lifetime of a generated App JWT. GitHub caps App
// JWTs at 10 minutes.
const appJWTExpiry = 10 * time.Minute

// appJWTBackdate is subtracted from the issued-at claim to guard
// against clock drift between the broker and GitHub
const appJWTBackdate = 60 * time.Second

// appTokenSource generates RS256-signed JWTs that authenticate as the
// GitHub App itself (not as an installation). App JWTs are used for
// installation listing and access token creation.
type appTokenSource struct {
	appID      string
	privateKey *rsa.PrivateKey
}

// newAppTokenSource wraps an App JWT generator in a reusing token
// source, so a JWT is shared across requests until it nears expiry
func newAppTokenSource(appID string, privateKey *rsa.PrivateKey) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &appTokenSource{
		appID:      appID,
		privateKey: privateKey,
	})
}

// Token implements oauth2.TokenSource
func (a *appTokenSource) Token() (*oauth2.Token, error) {
	now := time.Now().Add(-appJWTBackdate)
	expiresAt := now.Add(appJWTExpiry)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(a.privateKey)
	if err != nil {
		return nil, fmt.Errorf("github: signing app JWT: %w", err)
	}

	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      expiresAt,
	}, nil
}
