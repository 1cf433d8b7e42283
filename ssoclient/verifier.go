package ssoclient

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Claims are the identity claims of a verified access token
type Claims struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Subject   string `json:"sub"`
}

// Verifier checks RS256 access tokens against the server's JWKS endpoint. Keys are fetched
// lazily and refreshed when an unknown key id shows up.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier builds a Verifier for tokens issued by issuerURL. An empty audience skips the aud check.
func NewVerifier(ctx context.Context, issuerURL, jwksURL, audience string) *Verifier {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &Verifier{
		verifier: oidc.NewVerifier(issuerURL, keySet, &oidc.Config{
			ClientID:             audience,
			SkipClientIDCheck:    audience == "",
			SupportedSigningAlgs: []string{oidc.RS256},
		}),
	}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("[Verifier Verify] %w", err)
	}
	claims := &Claims{}
	if err := tok.Claims(claims); err != nil {
		return nil, fmt.Errorf("[Verifier Verify] decode claims: %w", err)
	}
	return claims, nil
}
