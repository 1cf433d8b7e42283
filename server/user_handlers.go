package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-sso-server/auth"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/users"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	Token string `json:"token"`
}

// Login authenticates credentials. When the browser carries a pending SSO request the handoff is
// completed as well, so the auth UI can redirect straight back to the service.
func (s *Server) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.completePendingSSO(w, r, sess.User)
		writeSession(w, http.StatusOK, sess)
	}
}

func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sess, err := s.auth.Register(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSession(w, http.StatusCreated, sess)
	}
}

func (s *Server) RefreshToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sess, err := s.auth.Refresh(r.Context(), req.Token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSession(w, http.StatusOK, sess)
	}
}

func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.auth.Logout(r.Context(), req.Token); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) UpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requestIsAuthorized(r)
		if !ok {
			writeError(w, r, apperrors.ErrNotAuthorized)
			return
		}
		var req auth.ProfileUpdate
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.RefreshToken == "" {
			req.RefreshToken = r.Header.Get(headerRefreshToken)
		}
		sess, err := s.auth.UpdateProfile(r.Context(), user, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSession(w, http.StatusOK, sess)
	}
}

func (s *Server) CurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requestIsAuthorized(r)
		if !ok {
			writeError(w, r, apperrors.ErrNotAuthorized)
			return
		}
		writeJSON(w, http.StatusOK, user.Profile())
	}
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetApproveRequest struct {
	Token string `json:"token"`
}

type passwordResetApproveResponse struct {
	Approval string `json:"approval"`
}

type passwordResetCompleteRequest struct {
	Approval string `json:"approval"`
	Password string `json:"password"`
}

func (s *Server) RequestPasswordReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordResetRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) ApprovePasswordReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordResetApproveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		approval, err := s.auth.ApprovePasswordReset(r.Context(), req.Token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, passwordResetApproveResponse{Approval: approval})
	}
}

func (s *Server) CompletePasswordReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordResetCompleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.auth.CompletePasswordReset(r.Context(), req.Approval, req.Password); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// completePendingSSO binds a pending auth request to user. Failures leave the login itself untouched.
func (s *Server) completePendingSSO(w http.ResponseWriter, r *http.Request, user *users.User) {
	requestID := s.cookies.get(r, s.config.GetAuthRequestCookie())
	if requestID == "" {
		return
	}
	serviceURL := s.cookies.get(r, s.config.GetServiceURLCookie())
	done, err := s.auth.CompleteSSO(r.Context(), user, requestID, serviceURL)
	if err != nil {
		log.Debug().Err(err).Str("userId", user.ID).Msg("Pending SSO request not completed at login")
		return
	}
	s.setSSOCookies(w, done.SSOID)
}

func writeSession(w http.ResponseWriter, status int, sess *auth.Session) {
	w.Header().Set(headerAccessToken, sess.AccessToken)
	if sess.RefreshToken != "" {
		w.Header().Set(headerRefreshToken, sess.RefreshToken)
	}
	writeJSON(w, status, sess.User.Profile())
}
