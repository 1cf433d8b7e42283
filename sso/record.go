package sso

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Record correlates the auth UI and a service UI during an SSO handoff.
// A pending record has ReqIDHash set and no user. Binding sets UserID and SSOIDHash and
// clears ReqIDHash, so the request id can be redeemed once.
type Record struct {
	ID         string
	ReqIDHash  string
	SSOIDHash  string
	UserID     *string
	ServiceURL string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (r *Record) IsBound() bool {
	return r.UserID != nil && *r.UserID != "" && r.SSOIDHash != ""
}

func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Repo persists SSO records. Lookups return errors.ErrNotFound for unknown keys.
type Repo interface {
	Create(ctx context.Context, record *Record) error
	GetByRequest(ctx context.Context, reqIDHash string) (*Record, error)
	GetBySSOID(ctx context.Context, ssoIDHash string) (*Record, error)

	// Bind promotes a pending record and reports whether it was still pending
	Bind(ctx context.Context, id, userID, ssoIDHash string) (bool, error)

	Delete(ctx context.Context, id string) error
	DeleteByRequest(ctx context.Context, reqIDHash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// Scope is the set of repositories bound to the caller's transaction
type Scope interface {
	SSORecords() Repo
}

// HashID returns the stored form of a request or SSO id
func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
