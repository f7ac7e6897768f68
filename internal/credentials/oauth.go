package credentials

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// tokenUsername is sent with access tokens; hosts ignore it.
const tokenUsername = "unused-when-using-access-tokens"

// TokenSourceProvider hands out the current access token of an
// oauth2.TokenSource as an HTTP password
type TokenSourceProvider struct {
	source   oauth2.TokenSource
	username string
}

// NewTokenSourceProvider wraps ts so tokens are cached until they expire
func NewTokenSourceProvider(ts oauth2.TokenSource) *TokenSourceProvider {
	return &TokenSourceProvider{
		source:   oauth2.ReuseTokenSource(nil, ts),
		username: tokenUsername,
	}
}

// WithUsername overrides the username sent alongside the token
func (p *TokenSourceProvider) WithUsername(user string) *TokenSourceProvider {
	p.username = user
	return p
}

// Credential implements Provider
func (p *TokenSourceProvider) Credential(_ context.Context, _ string) (Credential, error) {
	tok, err := p.source.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("fetch token: %w", err)
	}
	if !tok.Valid() {
		return Credential{}, fmt.Errorf("%w: token expired or empty", ErrCredentialInvalid)
	}
	return Credential{
		Type:     CredTypeUserPassPlainText,
		Username: p.username,
		Password: tok.AccessToken,
	}, nil
}
