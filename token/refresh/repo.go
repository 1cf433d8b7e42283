package refresh

import (
	"context"
	"time"
)

// Token is a persisted refresh token. The client only receives the Token value.
type Token struct {
	Token     string    // Opaque random value (sent to client)
	UserID    string    // Owning user
	FamilyID  string    // Lineage the token belongs to
	ExpiresAt time.Time // Set to the rotation time when the token is used
	CreatedAt time.Time
}

// IsExpired reports whether the token can no longer be redeemed
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Family groups the refresh tokens issued from one login
type Family struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Repo stores refresh tokens. Get returns errors.ErrNotFound for unknown values.
type Repo interface {
	Create(ctx context.Context, token *Token) error
	Get(ctx context.Context, token string) (*Token, error)

	// Expire sets ExpiresAt to at if the token is still live at that moment and
	// reports whether it did. A false result means another rotation got there first.
	Expire(ctx context.Context, token string, at time.Time) (bool, error)

	DeleteByFamily(ctx context.Context, familyID string) error

	// StaleFamilies lists families whose newest token expired before the given time
	StaleFamilies(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// FamilyRepo stores refresh token families. Delete of an unknown family is not an error.
type FamilyRepo interface {
	Create(ctx context.Context, family *Family) error
	Get(ctx context.Context, id string) (*Family, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*Family, error)
}
