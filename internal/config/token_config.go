package config

import (
	"time"
)

type TokenConfig interface {
	GetSigningAlgorithm() string
	GetSigningSecret() string
	GetSigningKeyFile() string
	GetSigningKeyID() string
	GetAudience() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetPasswordResetExpiry() time.Duration
}

const (
	AlgorithmHS256 = "HS256"
	AlgorithmRS256 = "RS256"
)

type Tokens struct {
	src values
}

var _ TokenConfig = Tokens{}

// GetSigningAlgorithm returns the single algorithm accepted for access tokens
func (t Tokens) GetSigningAlgorithm() string {
	return t.src.str("TOKEN_ALGORITHM", AlgorithmHS256)
}

func (t Tokens) GetSigningSecret() string {
	return t.src.str("TOKEN_SECRET", "")
}

// GetSigningKeyFile is the PEM encoded RSA private key used for RS256
func (t Tokens) GetSigningKeyFile() string {
	return t.src.str("TOKEN_KEY_FILE", "")
}

func (t Tokens) GetSigningKeyID() string {
	return t.src.str("TOKEN_KEY_ID", "sso-1")
}

func (t Tokens) GetAudience() string {
	return t.src.str("TOKEN_AUDIENCE", "sso-services")
}

func (t Tokens) GetAccessTokenExpiry() time.Duration {
	return t.src.duration("ACCESS_TOKEN_TTL", 15*time.Minute)
}

func (t Tokens) GetRefreshTokenExpiry() time.Duration {
	return time.Duration(t.src.integer("REFRESH_TOKEN_DAYS", 7)) * 24 * time.Hour
}

func (t Tokens) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (t Tokens) GetPasswordResetExpiry() time.Duration {
	return t.src.duration("PASSWORD_RESET_TTL", 30*time.Minute)
}

func (t Tokens) missing(dev bool) []string {
	var problems []string
	switch t.GetSigningAlgorithm() {
	case AlgorithmHS256:
		switch secret := t.GetSigningSecret(); {
		case secret == "":
			problems = append(problems, "TOKEN_SECRET is required for HS256")
		case !dev && len(secret) < 32:
			problems = append(problems, "TOKEN_SECRET must be at least 32 characters")
		}
	case AlgorithmRS256:
		if t.GetSigningKeyFile() == "" {
			problems = append(problems, "TOKEN_KEY_FILE is required for RS256")
		}
	default:
		problems = append(problems, "TOKEN_ALGORITHM must be HS256 or RS256")
	}
	return problems
}
