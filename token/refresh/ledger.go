package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Scope is the set of repositories bound to the caller's transaction
type Scope interface {
	Users() users.Repo
	RefreshTokens() Repo
	RefreshFamilies() FamilyRepo
}

// AccessTokenIssuer mints the access token handed out with a rotated refresh token
type AccessTokenIssuer interface {
	IssueAccessToken(user *users.User) (string, error)
}

// Outcome is the result of presenting a refresh token
type Outcome int

const (
	// Rotated means the token was live, is now expired, and a successor was minted
	Rotated Outcome = iota
	// Unknown means no token has the presented value
	Unknown
	// Revoked means an expired token was presented and its whole family was deleted
	Revoked
)

func (o Outcome) String() string {
	switch o {
	case Rotated:
		return "rotated"
	case Unknown:
		return "unknown"
	case Revoked:
		return "revoked"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Rotation carries the result of Ledger.Rotate
type Rotation struct {
	Outcome      Outcome
	FamilyID     string
	User         *users.User
	AccessToken  string
	RefreshToken *Token
}

// Ledger handles refresh token creation, rotation and family revocation.
// Every method runs against the repositories of the Scope it is given.
type Ledger struct {
	issuer AccessTokenIssuer
	length int
	ttl    time.Duration
}

// NewLedger creates a new refresh token ledger
func NewLedger(issuer AccessTokenIssuer, cfg config.TokenConfig) *Ledger {
	return &Ledger{
		issuer: issuer,
		length: cfg.GetRefreshTokenLength(),
		ttl:    cfg.GetRefreshTokenExpiry(),
	}
}

// CreateFamily starts a new token lineage for a login or registration
func (l *Ledger) CreateFamily(ctx context.Context, scope Scope, userID string) (*Family, error) {
	family := &Family{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: NowTimeFunc(),
	}
	if err := scope.RefreshFamilies().Create(ctx, family); err != nil {
		return nil, fmt.Errorf("failed to store refresh token family: %w", err)
	}
	return family, nil
}

// CreateToken generates a new refresh token in the given family and stores it
func (l *Ledger) CreateToken(ctx context.Context, scope Scope, userID, familyID string) (*Token, error) {
	tokenBytes := make([]byte, l.length) // Configured length (default: 32 bytes = 256 bits)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	now := NowTimeFunc()
	rt := &Token{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    userID,
		FamilyID:  familyID,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}
	if err := scope.RefreshTokens().Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rt, nil
}

// Issue creates a new family and its first token
func (l *Ledger) Issue(ctx context.Context, scope Scope, userID string) (*Token, error) {
	family, err := l.CreateFamily(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	return l.CreateToken(ctx, scope, userID, family.ID)
}

// Rotate redeems a refresh token.
//
// A live token is marked expired and replaced by a new token in the same family, and a
// new access token is minted for its user. An expired token is a reuse signal: its whole
// family is deleted and Revoked is returned. The caller's transaction must be committed for
// both outcomes; an error means nothing should be committed.
func (l *Ledger) Rotate(ctx context.Context, scope Scope, value string) (Rotation, error) {
	stored, err := scope.RefreshTokens().Get(ctx, value)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return Rotation{Outcome: Unknown}, nil
		}
		return Rotation{}, fmt.Errorf("[Ledger Rotate] lookup failed: %w", err)
	}

	now := NowTimeFunc()
	if stored.IsExpired(now) {
		return l.revoke(ctx, scope, stored.FamilyID)
	}

	user, err := scope.Users().GetByID(ctx, stored.UserID)
	if err != nil {
		return Rotation{}, fmt.Errorf("[Ledger Rotate] owner %s of refresh token not resolvable: %w", stored.UserID, err)
	}

	expired, err := scope.RefreshTokens().Expire(ctx, stored.Token, now)
	if err != nil {
		return Rotation{}, fmt.Errorf("[Ledger Rotate] failed to expire token: %w", err)
	}
	if !expired {
		return l.revoke(ctx, scope, stored.FamilyID)
	}

	next, err := l.CreateToken(ctx, scope, user.ID, stored.FamilyID)
	if err != nil {
		return Rotation{}, fmt.Errorf("[Ledger Rotate] %w", err)
	}

	accessToken, err := l.issuer.IssueAccessToken(user)
	if err != nil {
		return Rotation{}, fmt.Errorf("[Ledger Rotate] %w", err)
	}

	return Rotation{
		Outcome:      Rotated,
		FamilyID:     stored.FamilyID,
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: next,
	}, nil
}

func (l *Ledger) revoke(ctx context.Context, scope Scope, familyID string) (Rotation, error) {
	if err := l.DeleteFamily(ctx, scope, familyID); err != nil {
		return Rotation{}, fmt.Errorf("[Ledger Rotate] revocation failed: %w", err)
	}
	return Rotation{Outcome: Revoked, FamilyID: familyID}, nil
}

// DeleteFamily deletes every token of the family and then the family itself.
// Deleting a family that no longer exists succeeds.
func (l *Ledger) DeleteFamily(ctx context.Context, scope Scope, familyID string) error {
	if err := scope.RefreshTokens().DeleteByFamily(ctx, familyID); err != nil {
		return fmt.Errorf("failed to delete tokens of family %s: %w", familyID, err)
	}
	if err := scope.RefreshFamilies().Delete(ctx, familyID); err != nil {
		return fmt.Errorf("failed to delete family %s: %w", familyID, err)
	}
	return nil
}

// DeleteUserFamilies deletes every family of the user except keepFamilyID (which may be empty)
func (l *Ledger) DeleteUserFamilies(ctx context.Context, scope Scope, userID, keepFamilyID string) (int, error) {
	families, err := scope.RefreshFamilies().ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list families of user %s: %w", userID, err)
	}
	deleted := 0
	for _, f := range families {
		if f.ID == keepFamilyID {
			continue
		}
		if err := l.DeleteFamily(ctx, scope, f.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Reap deletes up to limit families whose newest token expired before the given time
func (l *Ledger) Reap(ctx context.Context, scope Scope, before time.Time, limit int) (int, error) {
	stale, err := scope.RefreshTokens().StaleFamilies(ctx, before, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale families: %w", err)
	}
	for i, id := range stale {
		if err := l.DeleteFamily(ctx, scope, id); err != nil {
			return i, err
		}
	}
	return len(stale), nil
}
