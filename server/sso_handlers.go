package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

type ssoRequest struct {
	ServiceURL string `json:"serviceUrl"`
}

type ssoInitiateResponse struct {
	AuthURL string `json:"authUrl"`
}

type ssoRedirectResponse struct {
	ServiceURL string `json:"serviceUrl"`
}

// InitiateSSO starts a handoff for a service UI and returns where to send the browser
func (s *Server) InitiateSSO() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ssoRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		stale := s.cookies.get(r, s.config.GetAuthRequestCookie())
		started, err := s.auth.InitiateSSO(r.Context(), req.ServiceURL, stale)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.cookies.set(w, s.config.GetAuthRequestCookie(), started.RequestID)
		s.cookies.set(w, s.config.GetServiceURLCookie(), started.ServiceURL)
		writeJSON(w, http.StatusOK, ssoInitiateResponse{AuthURL: started.AuthURL})
	}
}

// CompleteSSO hands a logged-in auth UI user back to the service that asked for them
func (s *Server) CompleteSSO() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requestIsAuthorized(r)
		if !ok {
			writeError(w, r, apperrors.ErrNotAuthorized)
			return
		}
		requestID := s.cookies.get(r, s.config.GetAuthRequestCookie())
		if requestID == "" {
			writeError(w, r, apperrors.Wrapf(apperrors.ErrNotFound, "no pending sso request"))
			return
		}
		serviceURL := s.cookies.get(r, s.config.GetServiceURLCookie())
		done, err := s.auth.CompleteSSO(r.Context(), user, requestID, serviceURL)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.setSSOCookies(w, done.SSOID)
		writeJSON(w, http.StatusOK, ssoRedirectResponse{ServiceURL: done.ServiceURL})
	}
}

// ExchangeSSOToken trades the SSO cookie for a session. Both handoff cookies are cleared on every path.
func (s *Server) ExchangeSSOToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ssoID := s.cookies.get(r, s.config.GetSSOCookie())
		s.cookies.clear(w, s.config.GetAuthRequestCookie())
		s.cookies.clear(w, s.config.GetSSOCookie())
		if ssoID == "" {
			writeError(w, r, apperrors.Wrapf(apperrors.ErrNotAuthorized, "no sso cookie"))
			return
		}
		sess, err := s.auth.ExchangeSSO(r.Context(), ssoID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSession(w, http.StatusOK, sess)
	}
}

func (s *Server) setSSOCookies(w http.ResponseWriter, ssoID string) {
	s.cookies.set(w, s.config.GetSSOCookie(), ssoID)
	s.cookies.clear(w, s.config.GetAuthRequestCookie())
	s.cookies.clear(w, s.config.GetServiceURLCookie())
}
