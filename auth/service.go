package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-sso-server/events"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/store/redisstore"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

const defaultResetTTL = 30 * time.Minute

// Dependencies holds the collaborators of the Service
type Dependencies struct {
	Store  store.Transactor      // Transactional repositories
	Issuer *token.Issuer         // Access token signing and verification
	Ledger *refresh.Ledger       // Refresh token rotation
	Broker *sso.Broker           // SSO handoff
	Grants redisstore.GrantStore // Password reset grants
	Events events.Publisher      // Domain events (optional)
	Hasher *users.Hasher         // Password hashing (optional)
}

// Service orchestrates the credential store, token issuer, refresh ledger and SSO broker.
// It owns every transaction; the components it drives run against the Scope it opens.
type Service struct {
	deps     Dependencies
	resetTTL time.Duration
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithPasswordResetTTL sets how long reset tokens and approvals stay valid
func WithPasswordResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// NewService validates the dependencies and creates a Service
func NewService(deps Dependencies, options ...ServiceOption) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("[NewService] Store is required")
	}
	if deps.Issuer == nil {
		return nil, errors.New("[NewService] Issuer is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("[NewService] Ledger is required")
	}
	if deps.Broker == nil {
		return nil, errors.New("[NewService] Broker is required")
	}
	if deps.Grants == nil {
		return nil, errors.New("[NewService] Grants is required")
	}
	if deps.Events == nil {
		deps.Events = events.LogPublisher{}
	}
	if deps.Hasher == nil {
		deps.Hasher = users.NewHasher(0)
	}

	s := &Service{
		deps:     deps,
		resetTTL: defaultResetTTL,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Session is what a client receives after logging in, registering, refreshing or exchanging an SSO id
type Session struct {
	User         *users.User
	AccessToken  string
	RefreshToken string
	FamilyID     string
}

// RegisterInput carries a registration request
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = users.NormalizeEmail(in.Email)
}

func (in RegisterInput) validate() error {
	if err := users.ValidateName("firstName", in.FirstName); err != nil {
		return err
	}
	if err := users.ValidateName("lastName", in.LastName); err != nil {
		return err
	}
	if err := users.ValidateEmail(in.Email); err != nil {
		return err
	}
	return users.ValidatePasswordStrength(in.Password)
}

// NewUser normalizes and validates in, then builds a user with a hashed password. It does not store it.
func NewUser(in RegisterInput, hasher *users.Hasher, now time.Time) (*users.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("[NewUser] %w", err)
	}
	return &users.User{
		ID:           uuid.New().String(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Login authenticates a user by email and password and starts a new refresh family.
// Unknown email and wrong password fail identically with ErrAuthFailed.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email", "is required")
	}
	if password == "" {
		return nil, apperrors.NewValidationError("password", "is required")
	}

	var user *users.User
	err := s.deps.Store.WithinReadTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		user, err = users.Authenticate(ctx, scope.Users(), s.deps.Hasher, email, password)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Login]")
	}
	if user == nil {
		return nil, apperrors.Wrapf(apperrors.ErrAuthFailed, "invalid email or password")
	}

	return s.startSession(ctx, user)
}

// Register creates a user and its first refresh family in one transaction
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	user, err := NewUser(in, s.deps.Hasher, s.nowTime())
	if err != nil {
		return nil, err
	}

	var rt *refresh.Token
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		if err := scope.Users().Create(ctx, user); err != nil {
			return err
		}
		var err error
		rt, err = s.deps.Ledger.Issue(ctx, scope, user.ID)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Wrapf(apperrors.ErrConflict, "email already registered")
		}
		return nil, apperrors.Wrapf(err, "[Register]")
	}

	accessToken, err := s.deps.Issuer.IssueAccessToken(user)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Register]")
	}

	s.publish(ctx, events.UserRegistered, user.ID, map[string]any{"email": user.Email})
	return &Session{User: user, AccessToken: accessToken, RefreshToken: rt.Token, FamilyID: rt.FamilyID}, nil
}

// Refresh rotates a refresh token. Presenting a token that was already used revokes its
// whole family; the revocation is committed even though the call fails with ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "refresh token is required")
	}

	var rotation refresh.Rotation
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		rotation, err = s.deps.Ledger.Rotate(ctx, scope, refreshToken)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Refresh]")
	}

	switch rotation.Outcome {
	case refresh.Rotated:
		return &Session{
			User:         rotation.User,
			AccessToken:  rotation.AccessToken,
			RefreshToken: rotation.RefreshToken.Token,
			FamilyID:     rotation.FamilyID,
		}, nil
	case refresh.Revoked:
		log.Warn().Str("familyId", rotation.FamilyID).Msg("Refresh token reuse detected, family revoked")
		s.publish(ctx, events.FamilyRevoked, rotation.FamilyID, map[string]any{"reason": "reuse"})
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "refresh token expired")
	default:
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "refresh token not recognised")
	}
}

// Logout deletes the family of the presented refresh token. Unknown tokens succeed.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		rt, err := scope.RefreshTokens().Get(ctx, refreshToken)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return nil
			}
			return err
		}
		return s.deps.Ledger.DeleteFamily(ctx, scope, rt.FamilyID)
	})
	return apperrors.Wrapf(err, "[Logout]")
}

// ProfileUpdate carries a profile change. Changing the password requires CurrentPassword.
type ProfileUpdate struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
	RefreshToken    string `json:"refreshToken,omitempty"` // Family kept alive on a password change
}

// UpdateProfile changes the user's profile and returns the stored user with a fresh access token.
// A password change deletes every refresh family except the one named by RefreshToken.
func (s *Service) UpdateProfile(ctx context.Context, current *users.User, in ProfileUpdate) (*Session, error) {
	if current == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotAuthorized, "no session")
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = users.NormalizeEmail(in.Email)
	if err := users.ValidateName("firstName", in.FirstName); err != nil {
		return nil, err
	}
	if err := users.ValidateName("lastName", in.LastName); err != nil {
		return nil, err
	}
	if err := users.ValidateEmail(in.Email); err != nil {
		return nil, err
	}

	changePassword := in.NewPassword != ""
	var newHash string
	if changePassword {
		if err := users.ValidatePasswordStrength(in.NewPassword); err != nil {
			return nil, err
		}
		var err error
		if newHash, err = s.deps.Hasher.Hash(in.NewPassword); err != nil {
			return nil, apperrors.Wrapf(err, "[UpdateProfile]")
		}
	}

	var updated *users.User
	var revoked int
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		stored, err := scope.Users().GetByID(ctx, current.ID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Wrapf(apperrors.ErrNotAuthorized, "user no longer exists")
			}
			return err
		}

		updated = stored.Clone()
		updated.FirstName = in.FirstName
		updated.LastName = in.LastName
		updated.Email = in.Email
		updated.UpdatedAt = s.nowTime()

		if changePassword {
			if !s.deps.Hasher.Compare(in.CurrentPassword, stored.PasswordHash) {
				return apperrors.Wrapf(apperrors.ErrAuthFailed, "current password is incorrect")
			}
			updated.PasswordHash = newHash
		}

		if err := scope.Users().Update(ctx, updated); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return apperrors.NewValidationError("email", "is already registered")
			}
			return err
		}

		if changePassword {
			keep := ""
			if in.RefreshToken != "" {
				if rt, err := scope.RefreshTokens().Get(ctx, in.RefreshToken); err == nil && rt.UserID == stored.ID {
					keep = rt.FamilyID
				}
			}
			if revoked, err = s.deps.Ledger.DeleteUserFamilies(ctx, scope, stored.ID, keep); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[UpdateProfile]")
	}

	accessToken, err := s.deps.Issuer.IssueAccessToken(updated)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[UpdateProfile]")
	}

	if changePassword {
		s.publish(ctx, events.PasswordChanged, updated.ID, map[string]any{"familiesRevoked": revoked})
	}
	return &Session{User: updated, AccessToken: accessToken}, nil
}

// VerifyAccessToken verifies a bearer token and resolves the user it names by email
func (s *Service) VerifyAccessToken(ctx context.Context, raw string) (*token.Claims, *users.User, error) {
	claims, err := s.deps.Issuer.Verify(raw)
	if err != nil {
		return nil, nil, err
	}

	var user *users.User
	err = s.deps.Store.WithinReadTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		user, err = scope.Users().GetByEmail(ctx, users.NormalizeEmail(claims.Email))
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return claims, nil, apperrors.Wrapf(apperrors.ErrNotAuthorized, "token user no longer exists")
		}
		return claims, nil, apperrors.Wrapf(err, "[VerifyAccessToken]")
	}
	return claims, user, nil
}

// Issuer exposes the token issuer for discovery endpoints
func (s *Service) Issuer() *token.Issuer {
	return s.deps.Issuer
}

// Reap deletes SSO records that expired before now and refresh families dead for longer than retention
func (s *Service) Reap(ctx context.Context, retention time.Duration, batch int) (records, families int, err error) {
	now := s.nowTime()
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		if records, err = s.deps.Broker.Reap(ctx, scope, now); err != nil {
			return err
		}
		families, err = s.deps.Ledger.Reap(ctx, scope, now.Add(-retention), batch)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("[Reap] %w", err)
	}
	return records, families, nil
}

func (s *Service) startSession(ctx context.Context, user *users.User) (*Session, error) {
	var rt *refresh.Token
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		var err error
		rt, err = s.deps.Ledger.Issue(ctx, scope, user.ID)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[startSession]")
	}

	accessToken, err := s.deps.Issuer.IssueAccessToken(user)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[startSession]")
	}
	return &Session{User: user, AccessToken: accessToken, RefreshToken: rt.Token, FamilyID: rt.FamilyID}, nil
}

// publish emits an event after the transaction that caused it committed. Failures are logged only.
func (s *Service) publish(ctx context.Context, eventType, key string, data map[string]any) {
	err := s.deps.Events.Publish(ctx, events.Event{
		Type:       eventType,
		OccurredAt: s.nowTime().UTC(),
		Key:        key,
		Data:       data,
	})
	if err != nil {
		log.Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
