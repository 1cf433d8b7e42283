package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	headerAccessToken  = "X-Access-Token"
	headerRefreshToken = "X-Refresh-Token"

	maxBodyBytes = 1 << 20
)

func statusForError(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation),
		apperrors.Is(err, apperrors.ErrAuthFailed),
		apperrors.Is(err, apperrors.ErrInvalidToken),
		apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrNotAuthorized):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to one status and one plain-text message. Causes of 500s are logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Err(err).
			Str("path", r.URL.Path).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("Request failed")
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, clientMessage(err), status)
}

// clientMessage is the validation message for field errors and the taxonomy text otherwise
func clientMessage(err error) string {
	var verr *apperrors.ValidationError
	if apperrors.As(err, &verr) {
		return verr.Error()
	}
	for _, sentinel := range []error{
		apperrors.ErrAuthFailed,
		apperrors.ErrInvalidToken,
		apperrors.ErrConflict,
		apperrors.ErrNotAuthorized,
		apperrors.ErrForbidden,
		apperrors.ErrNotFound,
		apperrors.ErrValidation,
	} {
		if apperrors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return http.StatusText(http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("", "invalid request body")
	}
	return nil
}
