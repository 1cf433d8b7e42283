package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/services"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const requestIDLength = 32

// ServiceRegistry resolves the downstream services allowed to start an SSO handoff
type ServiceRegistry interface {
	Lookup(serviceURL string) (*services.Service, bool)
}

// Broker runs the three SSO flows against the repositories of the Scope it is given
type Broker struct {
	cipher     *Cipher
	registry   ServiceRegistry
	authUIURL  string
	requestTTL time.Duration
}

// NewBroker creates a Broker. requestTTL bounds how long a pending auth request lives.
func NewBroker(cipher *Cipher, registry ServiceRegistry, authUIURL string, requestTTL time.Duration) *Broker {
	return &Broker{
		cipher:     cipher,
		registry:   registry,
		authUIURL:  authUIURL,
		requestTTL: requestTTL,
	}
}

// RequestTTL is how long a pending auth request stays usable
func (b *Broker) RequestTTL() time.Duration {
	return b.requestTTL
}

// Initiation is the result of a service UI asking for authentication
type Initiation struct {
	AuthURL    string // Where the browser is sent to log in
	RequestID  string // Raw request id for the auth-request cookie
	ServiceURL string // Where the browser returns afterwards
}

// Completion is the result of the auth UI handing a logged-in user back
type Completion struct {
	SSOID      string // Sealed SSO id for the SSO cookie
	ServiceURL string
}

// ResolveService checks that serviceURL belongs to a registered service
func (b *Broker) ResolveService(serviceURL string) (*services.Service, error) {
	if serviceURL == "" {
		return nil, apperrors.NewValidationError("serviceUrl", "is required")
	}
	parsed, err := url.Parse(serviceURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, apperrors.NewValidationError("serviceUrl", "must be an absolute URL")
	}
	svc, ok := b.registry.Lookup(serviceURL)
	if !ok {
		return nil, apperrors.NewValidationError("serviceUrl", "is not a registered service")
	}
	return svc, nil
}

// InitiateAuth records a pending auth request for serviceURL, replacing the one named by
// staleRequestID when the caller still carries it.
func (b *Broker) InitiateAuth(ctx context.Context, scope Scope, serviceURL, staleRequestID string) (*Initiation, error) {
	if staleRequestID != "" {
		if err := scope.SSORecords().DeleteByRequest(ctx, HashID(staleRequestID)); err != nil {
			return nil, fmt.Errorf("[Broker InitiateAuth] failed to delete stale request: %w", err)
		}
	}

	requestID, err := randomID()
	if err != nil {
		return nil, fmt.Errorf("[Broker InitiateAuth] %w", err)
	}

	now := NowTimeFunc()
	record := &Record{
		ID:         uuid.New().String(),
		ReqIDHash:  HashID(requestID),
		ServiceURL: serviceURL,
		ExpiresAt:  now.Add(b.requestTTL),
		CreatedAt:  now,
	}
	if err := scope.SSORecords().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("[Broker InitiateAuth] failed to store request: %w", err)
	}

	return &Initiation{
		AuthURL:    b.authURL(serviceURL),
		RequestID:  requestID,
		ServiceURL: serviceURL,
	}, nil
}

// CompleteAuth binds the pending request to an authenticated user and returns the sealed SSO id.
// serviceURL is the value carried by the service-url cookie and must match the request.
func (b *Broker) CompleteAuth(ctx context.Context, scope Scope, userID, requestID, serviceURL string) (*Completion, error) {
	if requestID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "no pending authentication request")
	}

	record, err := scope.SSORecords().GetByRequest(ctx, HashID(requestID))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "no pending authentication request")
		}
		return nil, fmt.Errorf("[Broker CompleteAuth] lookup failed: %w", err)
	}
	if record.IsExpired(NowTimeFunc()) {
		if err := scope.SSORecords().Delete(ctx, record.ID); err != nil {
			return nil, fmt.Errorf("[Broker CompleteAuth] failed to delete expired request: %w", err)
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "authentication request expired")
	}
	if serviceURL != "" && serviceURL != record.ServiceURL {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "service url does not match the pending request")
	}

	ssoID, err := b.cipher.Seal(userID, record.ID)
	if err != nil {
		return nil, fmt.Errorf("[Broker CompleteAuth] %w", err)
	}

	bound, err := scope.SSORecords().Bind(ctx, record.ID, userID, HashID(ssoID))
	if err != nil {
		return nil, fmt.Errorf("[Broker CompleteAuth] failed to bind request: %w", err)
	}
	if !bound {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "authentication request already completed")
	}

	return &Completion{SSOID: ssoID, ServiceURL: record.ServiceURL}, nil
}

// ExchangeToken consumes a bound SSO record and returns the id of its user.
// The record is deleted so the SSO id cannot be exchanged twice.
func (b *Broker) ExchangeToken(ctx context.Context, scope Scope, ssoID string) (string, error) {
	if ssoID == "" {
		return "", apperrors.Wrapf(apperrors.ErrNotAuthorized, "no sso session")
	}

	record, err := scope.SSORecords().GetBySSOID(ctx, HashID(ssoID))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Wrapf(apperrors.ErrNotAuthorized, "unknown sso session")
		}
		return "", fmt.Errorf("[Broker ExchangeToken] lookup failed: %w", err)
	}
	if !record.IsBound() {
		return "", apperrors.Wrapf(apperrors.ErrNotAuthorized, "sso session was never completed")
	}
	if record.IsExpired(NowTimeFunc()) {
		if err := scope.SSORecords().Delete(ctx, record.ID); err != nil {
			return "", fmt.Errorf("[Broker ExchangeToken] failed to delete expired session: %w", err)
		}
		return "", apperrors.Wrapf(apperrors.ErrNotAuthorized, "sso session expired")
	}

	userID := *record.UserID
	recordID, err := b.cipher.Open(userID, ssoID)
	if err != nil || recordID != record.ID {
		return "", apperrors.Wrapf(apperrors.ErrNotAuthorized, "sso session does not belong to its user")
	}

	if err := scope.SSORecords().Delete(ctx, record.ID); err != nil {
		return "", fmt.Errorf("[Broker ExchangeToken] failed to consume session: %w", err)
	}
	return userID, nil
}

// Reap deletes records that expired before the given time, pending or bound
func (b *Broker) Reap(ctx context.Context, scope Scope, before time.Time) (int, error) {
	n, err := scope.SSORecords().DeleteExpired(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("[Broker Reap] %w", err)
	}
	return n, nil
}

func (b *Broker) authURL(serviceURL string) string {
	u, err := url.Parse(b.authUIURL)
	if err != nil {
		return b.authUIURL
	}
	q := u.Query()
	q.Set("service", serviceURL)
	u.RawQuery = q.Encode()
	return u.String()
}

func randomID() (string, error) {
	b := make([]byte, requestIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
