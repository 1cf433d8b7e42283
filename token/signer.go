package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/token/keys"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.Claims) (string, error)

	// GetVerificationKey returns the key used to verify a parsed token
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

// JWKSProvider is implemented by signers that can publish their public keys
type JWKSProvider interface {
	GetJWKS() (*keys.JWKS, error)
}

// HMACsigner implements Signer using symmetric HMAC-SHA256
type HMACsigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer with the given secret
func NewHMACSigner(secret string) *HMACsigner {
	return &HMACsigner{
		secret: []byte(secret),
	}
}

func (h *HMACsigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signedToken, nil
}

func (h *HMACsigner) GetVerificationKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACsigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

// NewSignerFromConfig builds the signer for the configured algorithm
func NewSignerFromConfig(cfg config.TokenConfig) (Signer, error) {
	switch cfg.GetSigningAlgorithm() {
	case config.AlgorithmHS256:
		if cfg.GetSigningSecret() == "" {
			return nil, fmt.Errorf("HS256 requires a signing secret")
		}
		return NewHMACSigner(cfg.GetSigningSecret()), nil

	case config.AlgorithmRS256:
		keyPair, err := keys.LoadKeyPairFromFile(cfg.GetSigningKeyID(), cfg.GetSigningKeyFile())
		if err != nil {
			return nil, fmt.Errorf("failed to load RS256 key pair: %w", err)
		}
		return keys.NewKeyPairSigner(keyPair), nil

	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", cfg.GetSigningAlgorithm())
	}
}
