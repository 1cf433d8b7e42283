package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/jrsteele09/go-sso-server/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Issuer mints and verifies access tokens with a single configured algorithm
type Issuer struct {
	signer   Signer
	issuer   string
	audience string
	ttl      time.Duration
	parser   *jwt.Parser
}

// NewIssuer creates an Issuer. issuer is the public base URL of the SSO server.
func NewIssuer(signer Signer, issuer string, cfg config.TokenConfig) *Issuer {
	return &Issuer{
		signer:   signer,
		issuer:   issuer,
		audience: cfg.GetAudience(),
		ttl:      cfg.GetAccessTokenExpiry(),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(cfg.GetAudience()),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
		),
	}
}

// IssueAccessToken signs the identity claims of user
func (i *Issuer) IssueAccessToken(user *users.User) (string, error) {
	now := NowTimeFunc()
	claims := &Claims{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("[Issuer IssueAccessToken] %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry, then re-validates the
// payload against the claim schema. Every failure is reported as ErrInvalidToken.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.ErrInvalidToken
	}

	claims := &Claims{}
	tok, err := i.parser.ParseWithClaims(raw, claims, i.signer.GetVerificationKey)
	if err != nil || !tok.Valid {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "verify: %v", err)
	}

	parts := strings.Split(raw, ".")
	payload, err := i.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "decode payload: %v", err)
	}
	if err := checkSchema(payload); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "schema: %v", err)
	}
	return claims, nil
}

// TTL returns the lifetime of issued access tokens
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issuer returns the iss claim value
func (i *Issuer) Issuer() string {
	return i.issuer
}

// Audience returns the aud claim value
func (i *Issuer) Audience() string {
	return i.audience
}

// Algorithm returns the only accepted signing algorithm
func (i *Issuer) Algorithm() string {
	return i.signer.GetSigningMethod().Alg()
}

// JWKS returns the public key set when the signer is asymmetric
func (i *Issuer) JWKS() (*keys.JWKS, bool, error) {
	provider, ok := i.signer.(JWKSProvider)
	if !ok {
		return nil, false, nil
	}
	jwks, err := provider.GetJWKS()
	if err != nil {
		return nil, true, fmt.Errorf("[Issuer JWKS] %w", err)
	}
	return jwks, true, nil
}
