package server

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

// WellKnownOpenIDConfig serves a discovery document describing the token issuer and its endpoints
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issuer := s.auth.Issuer()
		baseURL := strings.TrimRight(s.config.GetBaseURL(), "/")

		resp := map[string]any{
			"issuer":   issuer.Issuer(),
			"jwks_uri": baseURL + RouteWellKnownJWKS,

			// Session endpoints
			"token_endpoint":         baseURL + RouteUsers,
			"refresh_endpoint":       baseURL + RouteRefreshToken,
			"end_session_endpoint":   baseURL + RouteLogout,
			"userinfo_endpoint":      baseURL + RouteUsersMe,
			"sso_initiate_endpoint":  baseURL + RouteSSO,
			"sso_exchange_endpoint":  baseURL + RouteSSOToken,
			"authorization_endpoint": s.config.GetAuthUIURL(),

			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{issuer.Algorithm()},
			"claims_supported": []string{
				"sub", "id", "email", "firstName", "lastName",
				"iss", "aud", "iat", "exp", "jti",
			},
		}
		if aud := issuer.Audience(); aud != "" {
			resp["audience"] = aud
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// WellKnownJWKS publishes the verification keys. HMAC signing has no public key, so it answers 404.
func (s *Server) WellKnownJWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, ok, err := s.auth.Issuer().JWKS()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeError(w, r, apperrors.Wrapf(apperrors.ErrNotFound, "no public keys for %s", s.auth.Issuer().Algorithm()))
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		writeJSON(w, http.StatusOK, jwks)
	}
}
