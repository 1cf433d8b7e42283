package auth

import (
	"context"

	"github.com/jrsteele09/go-sso-server/events"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

// InitiateSSO starts a handoff for a registered service. The service URL is checked before
// any transaction opens.
func (s *Service) InitiateSSO(ctx context.Context, serviceURL, staleRequestID string) (*sso.Initiation, error) {
	if _, err := s.deps.Broker.ResolveService(serviceURL); err != nil {
		return nil, err
	}

	var init *sso.Initiation
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		init, err = s.deps.Broker.InitiateAuth(ctx, scope, serviceURL, staleRequestID)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[InitiateSSO]")
	}
	return init, nil
}

// CompleteSSO binds the caller's pending request to the authenticated user
func (s *Service) CompleteSSO(ctx context.Context, user *users.User, requestID, serviceURL string) (*sso.Completion, error) {
	if user == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotAuthorized, "login required")
	}

	var done *sso.Completion
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		done, err = s.deps.Broker.CompleteAuth(ctx, scope, user.ID, requestID, serviceURL)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[CompleteSSO]")
	}

	s.publish(ctx, events.SSOCompleted, user.ID, map[string]any{"serviceUrl": done.ServiceURL})
	return done, nil
}

// ExchangeSSO consumes an SSO id and starts a session for its user in a new refresh family
func (s *Service) ExchangeSSO(ctx context.Context, ssoID string) (*Session, error) {
	var user *users.User
	var rt *refresh.Token
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		userID, err := s.deps.Broker.ExchangeToken(ctx, scope, ssoID)
		if err != nil {
			return err
		}
		user, err = scope.Users().GetByID(ctx, userID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Wrapf(apperrors.ErrNotAuthorized, "sso user no longer exists")
			}
			return err
		}
		rt, err = s.deps.Ledger.Issue(ctx, scope, user.ID)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[ExchangeSSO]")
	}

	accessToken, err := s.deps.Issuer.IssueAccessToken(user)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[ExchangeSSO]")
	}
	return &Session{User: user, AccessToken: accessToken, RefreshToken: rt.Token, FamilyID: rt.FamilyID}, nil
}
