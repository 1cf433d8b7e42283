package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/users"
)

type ContextKey string

const requestSessionKey ContextKey = "requestSession"

// RequestSession is the authentication outcome attached to every API request
type RequestSession struct {
	Token         string        // Raw bearer token, empty when none was sent
	Claims        *token.Claims // Verified claims
	User          *users.User   // User resolved from the claims
	NotAuthorized bool          // A token was sent but could not be verified or resolved
}

// Authorized reports whether a token was presented and its user resolved
func (rs *RequestSession) Authorized() bool {
	return rs != nil && rs.Token != "" && !rs.NotAuthorized && rs.User != nil
}

// SessionContextMiddleware verifies the bearer token when one is present and records the outcome.
// It never rejects a request; handlers that need a user call requestIsAuthorized.
func (s *Server) SessionContextMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs := &RequestSession{Token: bearerToken(r)}
		if rs.Token != "" {
			claims, user, err := s.auth.VerifyAccessToken(r.Context(), rs.Token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Bearer token rejected")
				rs.NotAuthorized = true
			}
			rs.Claims = claims
			rs.User = user
		}
		next(w, r.WithContext(context.WithValue(r.Context(), requestSessionKey, rs)))
	}
}

// SessionFromContext returns the session attached by SessionContextMiddleware
func SessionFromContext(ctx context.Context) *RequestSession {
	rs, _ := ctx.Value(requestSessionKey).(*RequestSession)
	return rs
}

func requestIsAuthorized(r *http.Request) (*users.User, bool) {
	rs := SessionFromContext(r.Context())
	if !rs.Authorized() {
		return nil, false
	}
	return rs.User, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
