package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type SecurityConfig interface {
	GetServerSecret() string
	GetBcryptCost() int
	GetReaperInterval() time.Duration
	GetRefreshRetention() time.Duration
}

type Security struct {
	src values
}

var _ SecurityConfig = Security{}

// GetServerSecret keys the per-user SSO id cipher
func (s Security) GetServerSecret() string {
	return s.src.str("SERVER_SECRET", "")
}

func (s Security) GetBcryptCost() int {
	cost := s.src.integer("BCRYPT_COST", bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

func (s Security) GetReaperInterval() time.Duration {
	return s.src.duration("REAPER_INTERVAL", 10*time.Minute)
}

// GetRefreshRetention is how long a dead refresh family is kept as a reuse tripwire
func (s Security) GetRefreshRetention() time.Duration {
	return s.src.duration("REFRESH_RETENTION", 7*24*time.Hour)
}

func (s Security) missing(dev bool) []string {
	if len(s.GetServerSecret()) < 32 && !dev {
		return []string{"SERVER_SECRET must be at least 32 characters"}
	}
	if s.GetServerSecret() == "" {
		return []string{"SERVER_SECRET is required"}
	}
	return nil
}
