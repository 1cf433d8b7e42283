package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-sso-server/events"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/store/redisstore"
	"github.com/jrsteele09/go-sso-server/users"
)

const grantTokenLength = 32

// RequestPasswordReset starts a reset for email. It succeeds whether or not the email is
// registered; the reset token only leaves the server through the published event.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = users.NormalizeEmail(email)
	if err := users.ValidateEmail(email); err != nil {
		return err
	}

	var user *users.User
	err := s.deps.Store.WithinReadTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		user, err = scope.Users().GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			log.Debug().Msg("Password reset requested for unknown email")
			return nil
		}
		return apperrors.Wrapf(err, "[RequestPasswordReset]")
	}

	resetToken, err := grantToken()
	if err != nil {
		return apperrors.Wrapf(err, "[RequestPasswordReset]")
	}
	grant := redisstore.Grant{Kind: redisstore.KindPasswordReset, UserID: user.ID, CreatedAt: s.nowTime()}
	if err := s.deps.Grants.Put(ctx, resetToken, grant, s.resetTTL); err != nil {
		log.Err(err).Str("userId", user.ID).Msg("Failed to store password reset grant")
		return nil
	}

	s.publish(ctx, events.PasswordResetRequested, user.ID, map[string]any{
		"email":     user.Email,
		"firstName": user.FirstName,
		"token":     resetToken,
		"expiresIn": s.resetTTL.String(),
	})
	return nil
}

// ApprovePasswordReset consumes a reset token and returns a single-use approval for CompletePasswordReset
func (s *Service) ApprovePasswordReset(ctx context.Context, resetToken string) (string, error) {
	grant, err := s.takeGrant(ctx, resetToken, redisstore.KindPasswordReset)
	if err != nil {
		return "", err
	}

	approval, err := grantToken()
	if err != nil {
		return "", apperrors.Wrapf(err, "[ApprovePasswordReset]")
	}
	approved := redisstore.Grant{Kind: redisstore.KindApprovedPasswordReset, UserID: grant.UserID, CreatedAt: s.nowTime()}
	if err := s.deps.Grants.Put(ctx, approval, approved, s.resetTTL); err != nil {
		return "", apperrors.Wrapf(err, "[ApprovePasswordReset]")
	}
	return approval, nil
}

// CompletePasswordReset sets a new password and deletes every refresh family of the user
func (s *Service) CompletePasswordReset(ctx context.Context, approval, password string) error {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return err
	}
	grant, err := s.takeGrant(ctx, approval, redisstore.KindApprovedPasswordReset)
	if err != nil {
		return err
	}

	hash, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return apperrors.Wrapf(err, "[CompletePasswordReset]")
	}

	var revoked int
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		user, err := scope.Users().GetByID(ctx, grant.UserID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Wrapf(apperrors.ErrInvalidToken, "password reset user no longer exists")
			}
			return err
		}
		user.PasswordHash = hash
		user.UpdatedAt = s.nowTime()
		if err := scope.Users().Update(ctx, user); err != nil {
			return err
		}
		revoked, err = s.deps.Ledger.DeleteUserFamilies(ctx, scope, user.ID, "")
		return err
	})
	if err != nil {
		return apperrors.Wrapf(err, "[CompletePasswordReset]")
	}

	s.publish(ctx, events.PasswordChanged, grant.UserID, map[string]any{"familiesRevoked": revoked, "reset": true})
	return nil
}

func (s *Service) takeGrant(ctx context.Context, key, kind string) (*redisstore.Grant, error) {
	if key == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "password reset token is required")
	}
	grant, err := s.deps.Grants.Take(ctx, kind, key)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[takeGrant]")
	}
	if grant == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "password reset token is invalid or expired")
	}
	return grant, nil
}

func grantToken() (string, error) {
	b := make([]byte, grantTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate grant token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
